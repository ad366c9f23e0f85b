package main

import "github.com/sgloader/sgloader-packager/cmd/sgloader-packager/cmd"

func main() {
	cmd.Execute()
}
