package seaport

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ChainID represents a blockchain chain ID
type ChainID int

const (
	ChainIDMainnet  ChainID = 1        // Ethereum mainnet
	ChainIDPolygon  ChainID = 137      // Polygon PoS
	ChainIDSepolia  ChainID = 11155111 // Sepolia testnet
	ChainIDLocalDev ChainID = 1337     // Local development chain
)

// SupportedChainIDs lists all supported chain IDs
var SupportedChainIDs = []ChainID{ChainIDMainnet, ChainIDPolygon, ChainIDSepolia, ChainIDLocalDev}

// ContractAddresses holds contract addresses for each chain
type ContractAddresses struct {
	Seaport string
}

// crossChainSeaport is deployed at the same address on every supported chain
const crossChainSeaport = "0x00000000006c3852cbEf3e08E8dF289169EdE581"

// DefaultContractAddresses maps chain IDs to their contract addresses
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDMainnet:  {Seaport: crossChainSeaport},
	ChainIDPolygon:  {Seaport: crossChainSeaport},
	ChainIDSepolia:  {Seaport: crossChainSeaport},
	ChainIDLocalDev: {Seaport: crossChainSeaport},
}

// ClientConfig holds configuration for creating a Client.
// A zero DecimalsCacheTTL means one hour; a negative one disables the decimals cache.
type ClientConfig struct {
	ChainID             ChainID       `yaml:"chain_id" env:"SEAPORT_CHAIN_ID" env-default:"1"`
	RPCURL              string        `yaml:"rpc_url" env:"SEAPORT_RPC_URL"`
	PrivateKey          string        `yaml:"private_key" env:"SEAPORT_PRIVATE_KEY"`
	SeaportAddress      string        `yaml:"seaport_address" env:"SEAPORT_ADDRESS"`
	SnapshotConcurrency int           `yaml:"snapshot_concurrency" env:"SEAPORT_SNAPSHOT_CONCURRENCY" env-default:"8"`
	DecimalsCacheTTL    time.Duration `yaml:"decimals_cache_ttl" env:"SEAPORT_DECIMALS_CACHE_TTL" env-default:"1h"`
}

// LoadClientConfig reads a ClientConfig from the YAML file at path, with
// environment variables taking precedence. An empty path reads the environment only.
func LoadClientConfig(path string) (*ClientConfig, error) {
	var cfg ClientConfig

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from env: %w", err)
	}
	return &cfg, nil
}

// withDefaults validates the chain and fills unset fields
func (c ClientConfig) withDefaults() (ClientConfig, error) {
	isSupported := false
	for _, supportedID := range SupportedChainIDs {
		if c.ChainID == supportedID {
			isSupported = true
			break
		}
	}
	if !isSupported {
		return c, &ConfigurationError{
			Message: fmt.Sprintf("chain_id must be one of %v", SupportedChainIDs),
		}
	}

	if c.SeaportAddress == "" {
		c.SeaportAddress = DefaultContractAddresses[c.ChainID].Seaport
	}
	if c.SnapshotConcurrency <= 0 {
		c.SnapshotConcurrency = DefaultSnapshotConcurrency
	}
	if c.DecimalsCacheTTL == 0 {
		c.DecimalsCacheTTL = 1 * time.Hour
	}

	return c, nil
}
