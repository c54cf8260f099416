package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/alexedwards/argon2id"
)

// Generates the argon2id hash for the supervisor PIN that gates custom unit
// prices. Put the output in SUPERVISOR_PIN_HASH.
func main() {
	pin := flag.String("pin", "", "supervisor PIN to hash")
	flag.Parse()

	if *pin == "" {
		log.Fatal("usage: pinhash -pin <digits>")
	}
	if len(*pin) < 4 {
		log.Fatal("PIN must be at least 4 characters")
	}

	hash, err := argon2id.CreateHash(*pin, argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("Failed to hash PIN: %v", err)
	}
	fmt.Println(hash)
}
