//go:build linux

package main

func main() {
	run()
}
