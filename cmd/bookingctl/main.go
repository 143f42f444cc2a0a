// Command bookingctl is a terminal client for the booking chat. It drives the
// same conversation engine as the API server against a workflow webhook.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
