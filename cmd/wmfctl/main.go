package main

import (
	"github.com/wheremyfriends/webapp/internal/cli"
)

func main() {
	cli.Execute()
}
