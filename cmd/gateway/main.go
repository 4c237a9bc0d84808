// Command gateway runs the inference gateway: an OpenAI-compatible reverse
// proxy that fans requests out to self-registered backend model servers.
//
// Usage:
//
//	# Start the gateway with configuration from the environment
//	gateway run
//
//	# Show version information
//	gateway version
//
// Configuration is read entirely from environment variables (see
// pkg/config), optionally overlaid from a YAML file named by CONFIG_FILE.
package main

func main() {
	Execute()
}
