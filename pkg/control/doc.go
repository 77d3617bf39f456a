// Package control encodes and sends auxiliary key/value control messages.
//
// A message is a serialized pair of a symbol key and either a float64 or a
// string value, the layout the receiving radio pipeline expects on its
// message port:
//
//	[0x07][0x02][key len: uint16 BE][key]
//	[0x04][value: float64 BE]                      numeric value
//	[0x02][value len: uint16 BE][value]            string value
//
// Values that parse as a float64 are sent numerically; anything else is sent
// as a string. Each message travels in its own UDP datagram and no reply is
// expected.
//
// Example:
//
//	sender, err := control.NewSender(control.DefaultAddress)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sender.Close()
//
//	sender.Send("freq", "101100000")
package control
