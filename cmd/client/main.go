package main

import (
	"log"
	"net"
	"os"

	"github.com/spf13/pflag"

	"github.com/Trylar/go-messenger/internal/client"
)

func main() {
	host := pflag.String("host", "127.0.0.1", "server host")
	port := pflag.String("port", "8888", "server port")
	pflag.Parse()

	if env := os.Getenv("SERVER_HOST"); env != "" && !pflag.CommandLine.Changed("host") {
		*host = env
	}
	if env := os.Getenv("SERVER_PORT"); env != "" && !pflag.CommandLine.Changed("port") {
		*port = env
	}

	c := client.New(net.JoinHostPort(*host, *port), os.Stdin, os.Stdout)
	if err := c.Run(); err != nil {
		log.Printf("Fatal: %v", err)
		os.Exit(1)
	}
}
