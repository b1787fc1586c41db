package main

import "github.com/goliatone/go-repository-service/cmd/refcache/cmd"

func main() {
	cmd.Execute()
}
