// Package gateway serves the watsonx client over a local HTTP API so tools
// that cannot hold IBM Cloud credentials can still generate text.
package gateway

// DefaultListenAddr is used when Config.ListenAddr is empty.
const DefaultListenAddr = ":8090"

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string
}
