package main

import (
	"os"

	"horse.fit/babel/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
