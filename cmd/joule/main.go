// Command joule runs the conversational intake agent over HTTP, MCP or an interactive terminal.
package main

func main() {
	Execute()
}
