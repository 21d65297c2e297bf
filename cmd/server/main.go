package main

import "github.com/eleven-am/visitor-pulse/internal/bootstrap"

func main() {
	bootstrap.Run()
}
