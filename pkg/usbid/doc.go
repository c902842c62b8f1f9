// Package usbid names USB devices from the usb.ids database shipped with
// usbutils, with a built-in table for the programmers and bridges this
// module talks to.
//
//	db := usbid.Load()
//	fmt.Println(db.Name(0x03EB, 0x2104)) // Atmel Corp. AVR ISP mkII
//
// Lookups never fail; an unknown ID is printed in hex.
package usbid
