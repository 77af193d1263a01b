package config

import (
	"flag"
	"os"
	"time"

	"github.com/wakeemil/gamebase/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-l int      pool connection max lifetime, seconds
//	-w int      pool acquire timeout, seconds
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-l", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	poolConnMaxLifetime := fs.Int("l", int(config.PoolConnMaxLifetime.Seconds()), "pool_conn_max_lifetime (in seconds)")
	poolAcquireTimeout := fs.Int("w", int(config.PoolAcquireTimeout.Seconds()), "pool_acquire_timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.PoolConnMaxLifetime = time.Duration(*poolConnMaxLifetime) * time.Second
	config.PoolAcquireTimeout = time.Duration(*poolAcquireTimeout) * time.Second
}
