package fireboard

// Raw device records as returned by the Fireboard cloud API. These are
// owned transiently by the projector during one refresh and never held
// across cycles.

// Device is one Fireboard thermometer as listed by /v1/devices.json.
type Device struct {
	ID                 int       `json:"id"`
	UUID               string    `json:"uuid"`
	HardwareID         string    `json:"hardware_id"`
	Title              string    `json:"title"`
	Model              string    `json:"model"`
	Version            string    `json:"version"`
	DegreeType         int       `json:"degreetype"`
	LastBatteryReading float64   `json:"last_battery_reading"`
	Channels           []Channel `json:"channels"`
	LatestTemps        []Reading `json:"latest_temps"`
	DeviceLog          DeviceLog `json:"device_log"`
}

// Channel is one sensing channel (probe port) on a device.
type Channel struct {
	ID           int    `json:"id"`
	Channel      int    `json:"channel"`
	ChannelLabel string `json:"channel_label"`
	Enabled      bool   `json:"enabled"`
}

// Reading is one latest-temperature entry, matched to channels by index.
type Reading struct {
	Channel    int     `json:"channel"`
	Temp       float64 `json:"temp"`
	DegreeType int     `json:"degreetype"`
}

// DeviceLog carries device network details.
type DeviceLog struct {
	MacNIC string `json:"macNIC"`
}

// degreeFahrenheit is the degreetype value the cloud uses for devices
// configured in Fahrenheit; everything else reports Celsius.
const degreeFahrenheit = 2

// loginRequest is the body for /rest/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the API token returned on successful login.
type loginResponse struct {
	Key string `json:"key"`
}
