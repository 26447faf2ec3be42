package main

import "availability-backend/cmd"

func main() {
	cmd.Execute()
}
