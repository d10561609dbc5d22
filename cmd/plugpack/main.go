package main

import "github.com/goplus/plugpack/cmd/plugpack/internal"

func main() {
	internal.Execute()
}
