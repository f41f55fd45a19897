package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env holds settings supplied through the environment or a .env file.
type Env struct {
	RPCURL             string `envconfig:"ETH_RPC_URL"`
	AlchemyURL         string `envconfig:"STAGING_ALCHEMY_KEY"`
	PrivateKey         string `envconfig:"PRIVATE_KEY"`
	KeystoreDir        string `envconfig:"KEYSTORE_DIR"`
	KeystorePassphrase string `envconfig:"KEYSTORE_PASSPHRASE"`
	WalletRPCURL       string `envconfig:"WALLET_RPC_URL"`
	Contract           string `envconfig:"WAVE_CONTRACT"`
	ConfigPath         string `envconfig:"WAVE_CONFIG"`
}

// LoadEnv reads .env files (if present) and then the process environment.
// Variables already set in the environment win over .env values.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// a missing .env is normal
		_ = godotenv.Load(f)
	}

	var e Env
	if err := envconfig.Process("", &e); err != nil {
		return Env{}, fmt.Errorf("unable to get envconfig: %w", err)
	}
	e.RPCURL = strings.TrimSpace(e.RPCURL)
	e.AlchemyURL = strings.TrimSpace(e.AlchemyURL)
	return e, nil
}

// EndpointURL returns ETH_RPC_URL, falling back to STAGING_ALCHEMY_KEY.
func (e Env) EndpointURL() string {
	if e.RPCURL != "" {
		return e.RPCURL
	}
	return e.AlchemyURL
}

// Merge applies environment overrides on top of the file config.
func (e Env) Merge(cfg Config) Config {
	cfg = cfg.withDefaults()
	cfg.RPCURLs = append([]RPCUrl(nil), cfg.RPCURLs...)
	if url := e.EndpointURL(); url != "" {
		found := false
		for i, r := range cfg.RPCURLs {
			if r.URL == url {
				cfg.Activate(i)
				found = true
				break
			}
		}
		if !found {
			for i := range cfg.RPCURLs {
				cfg.RPCURLs[i].Active = false
			}
			cfg.RPCURLs = append(cfg.RPCURLs, RPCUrl{Name: "Environment", URL: url, Active: true})
		}
	}
	if e.Contract != "" {
		cfg.Contract = e.Contract
	}
	return cfg
}
