// Package bridge moves parameter changes, note events and downsampled audio
// from a realtime audio callback to an OSC over UDP sender.
//
// The realtime side (Engine.Process) only performs non-blocking sends of
// value-typed Messages into a bounded Channel. A single Worker goroutine
// owns the UDP socket and the address namespace, encodes every data
// Message as an OSC message and sends it. Reconfiguration travels through
// the same Channel as data, so a ConnectionChange or AddressBaseChange is
// applied before any data sent after it by the same producer.
//
// Addresses, with {base} being "" or "/name":
//
//	{base}/param/{name}  f       parameter value
//	{base}/note_on       i i f   channel, note, velocity
//	{base}/note_off      i i f   channel, note, velocity
//	{base}/audio         f       downsampled audio sample
//	{base}/midi          m       packed note on/off (NoteMIDI encoding)
//
// Delivery is best effort: data is dropped when the Channel is full and
// discarded while the Worker has no valid destination.
package bridge
