package main

// main is the entry point for the phishguard CLI.
func main() {
	Execute()
}
