package main

import "geofuse/cmd"

func main() {
	cmd.Execute()
}
