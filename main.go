package main

import (
	"github.com/ValentinKolb/kvload/cmd"
)

func main() {
	cmd.Execute()
}
