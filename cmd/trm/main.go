package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/jvasco323/TRM/internal/cli"
	"github.com/jvasco323/TRM/internal/notification"
)

func printBanner() {
	banner := figure.NewFigure("TRM", "isometric1", true)
	bannercolor.Cyan(banner.String())
	fmt.Println()
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			// Get the function, file, and line where panic occurred
			pc, file, line, ok := runtime.Caller(3) // 3 levels up is often the panic source
			var location string
			if ok {
				fn := runtime.FuncForPC(pc)
				location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
			} else {
				location = "Unknown location"
			}

			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mLocation: %s\033[0m\n", location)

			stack := debug.Stack()
			errMessage := fmt.Sprintf("TRM panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, stack)
			if err := notification.SendDiscordErrorNotification(errMessage); err != nil {
				fmt.Printf("Failed to send Discord error notification: %v\n", err)
			}
			os.Exit(1)
		}
	}()

	// The env file is optional, deployments can configure through real
	// environment variables instead.
	if err := godotenv.Load(".env"); err != nil {
		godotenv.Load("../../.env")
	}

	printBanner()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Printf("\033[31mError: %v\033[0m\n", err)
		os.Exit(1)
	}
}
