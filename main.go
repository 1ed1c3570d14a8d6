package main

import "github.com/dirsync/scim-provisioner/cmd"

func main() {
	cmd.Execute()
}
