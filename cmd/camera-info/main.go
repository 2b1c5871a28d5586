// Command camera-info checks that a camera delivers frames and lists the
// serial ports usable for the serial transport or the pan servo.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gwillem/faceguide/pkg/channel"
	"github.com/gwillem/faceguide/pkg/vision/opencv"
)

func main() {
	device := flag.Int("camera", 0, "Camera device index")
	scan := flag.Int("scan", 0, "Also probe this many further camera indexes")
	flag.Parse()

	fmt.Println("faceguide Camera Check")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	ok := false
	for i := *device; i <= *device+*scan; i++ {
		res, err := opencv.Probe(i)
		if err != nil {
			fmt.Printf("  ✗ Camera %d not accessible: %v\n", i, err)
			continue
		}
		ok = true
		fmt.Printf("  ✓ Camera %d: frame captured successfully (%dx%d)\n", res.Device, res.Width, res.Height)
	}

	if path, err := opencv.FindCascade(opencv.DefaultCascade); err == nil {
		fmt.Printf("  ✓ Face model: %s\n", path)
	} else {
		fmt.Printf("  ✗ Face model %s not found\n", opencv.DefaultCascade)
	}

	fmt.Println()
	fmt.Println("Serial ports:")
	ports, err := channel.Ports()
	switch {
	case err != nil:
		fmt.Printf("  Error listing ports: %v\n", err)
	case len(ports) == 0:
		fmt.Println("  (none)")
	default:
		for _, p := range ports {
			fmt.Printf("  %s\n", p)
		}
	}

	if !ok {
		fmt.Println()
		fmt.Println("Possible solutions:")
		fmt.Println("  1. Check if the camera is connected")
		fmt.Println("  2. Close other applications using the camera")
		fmt.Println("  3. Try a different camera index (-camera 1, -scan 3)")
		os.Exit(1)
	}
}
