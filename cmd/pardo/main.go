// Package main provides the Pardo CLI.
package main

import (
	"fmt"
	"os"

	"github.com/pardo-ml/pardo/place"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Pardo %s\n", version)
			return
		case "places":
			printPlaces()
			return
		}
	}

	fmt.Println("Pardo - Cross-Device Parallel Execution for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  places     List available devices and their execution slots")
}

func printPlaces() {
	for _, kind := range []place.Kind{place.KindCPU, place.KindGPU} {
		if !place.Available(kind) {
			fmt.Printf("%s: not available\n", kind)
			continue
		}
		var root place.Place
		if kind == place.KindCPU {
			root = place.CPU()
		} else {
			root = place.GPU()
		}
		subs := place.SubPlaces(root)
		fmt.Printf("%s: %d slot(s)\n", kind, len(subs))
		for _, p := range subs {
			fmt.Printf("  %s\n", p)
		}
	}
}
