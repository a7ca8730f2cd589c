package solana

import "strings"

// Environment is the JSON RPC endpoint of a public cluster.
type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// ResolveEndpoint maps a cluster moniker (mainnet, devnet, testnet and their
// short forms) to its public endpoint. Anything else is returned unchanged,
// so explicit URLs pass through.
func ResolveEndpoint(endpoint string) string {
	switch strings.ToLower(strings.TrimSpace(endpoint)) {
	case "mainnet", "mainnet-beta", "m":
		return string(EnvironmentProd)
	case "devnet", "d":
		return string(EnvironmentDev)
	case "testnet", "t":
		return string(EnvironmentTest)
	default:
		return endpoint
	}
}
