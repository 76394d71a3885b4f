package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type API struct {
	ListenAddr  string
	CORSOrigins []string
}

type Market struct {
	// RecordDeposit is the native-currency deposit (in the smallest
	// denomination) reserved when an order record is created and refunded
	// to the creator when the record is closed.
	//
	// Default matches the rent-exempt minimum for the fixed-size order
	// record: (128 + 113) * 6960 = 1,677,360.
	RecordDeposit uint64

	// VaultMint optionally pins the vault asset to an externally known
	// key (0x-hex). Empty means the key is derived from VaultSymbol.
	VaultMint     string
	VaultSymbol   string
	VaultDecimals uint8
}

type Config struct {
	DataDir string
	LogFile string
	API     API
	Market  Market
}

func Default() Config {
	return Config{
		DataDir: "data",
		LogFile: "data/marketd.log",
		API: API{
			ListenAddr:  ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Market: Market{
			RecordDeposit: 1_677_360,
			VaultSymbol:   "SEC",
			VaultDecimals: 6,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if dir := os.Getenv("MARKET_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}
	if addr := os.Getenv("API_LISTEN_ADDR"); addr != "" {
		cfg.API.ListenAddr = addr
	}
	if origins := os.Getenv("API_CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = strings.Split(origins, ",")
	}
	if dep := os.Getenv("RECORD_DEPOSIT"); dep != "" {
		if v, err := strconv.ParseUint(dep, 10, 64); err == nil {
			cfg.Market.RecordDeposit = v
		}
	}
	if mint := os.Getenv("VAULT_MINT"); mint != "" {
		cfg.Market.VaultMint = mint
	}
	if sym := os.Getenv("VAULT_SYMBOL"); sym != "" {
		cfg.Market.VaultSymbol = sym
	}
	if dec := os.Getenv("VAULT_DECIMALS"); dec != "" {
		if v, err := strconv.ParseUint(dec, 10, 8); err == nil {
			cfg.Market.VaultDecimals = uint8(v)
		}
	}

	return cfg
}
