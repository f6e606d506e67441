// Package fireboard polls the Fireboard cloud API for BBQ/smoker
// thermometer devices and projects them into battery and per-channel
// temperature records.
//
// One Source per configured account; the client logs in lazily and keeps
// the session token until the cloud rejects it.
package fireboard
