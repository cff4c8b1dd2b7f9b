package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/pulsekeeper/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-d", "-s", "-t", "-k", "-z", "-r", "-i", "-b", "-l", "-o"}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   assertion HMAC secret key
//	-t int      assertion validity, minutes
//	-k int      bcrypt cost
//	-z string   canonical timezone (IANA name)
//	-r string   Redis address for the ingest limiter
//	-i float    ingest rate, samples per second per user
//	-b int      ingest burst
//	-l string   log backend (slog|zap)
//	-o string   trace exporter (none|stdout)
//
// Args are first filtered with flagx.FilterArgs so that -c/-config and
// unknown flags do not trip the FlagSet.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run http server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run grpc health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.Timezone, "z", config.Timezone, "canonical timezone")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for ingest rate limiting")
	fs.Float64Var(&config.IngestRate, "i", config.IngestRate, "ingest rate (samples per second per user)")
	fs.IntVar(&config.IngestBurst, "b", config.IngestBurst, "ingest burst")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog|zap)")
	fs.StringVar(&config.TraceExporter, "o", config.TraceExporter, "trace exporter (none|stdout)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
