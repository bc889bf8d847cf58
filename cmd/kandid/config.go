package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nawinsharma/kandid/internal/config"
	kandidtls "github.com/nawinsharma/kandid/internal/tls"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  TLS: %v\n", cfg.Server.TLS.Enabled)
	if tls := cfg.Server.TLS; tls.Enabled {
		if tls.ACME.Enabled {
			fmt.Printf("    ACME domains: %v (challenge on %s)\n", tls.ACME.Domains, tls.ACME.HTTPAddr)
		} else {
			info, err := kandidtls.GetCertificateInfo(tls.CertFile)
			if err != nil {
				return err
			}
			fmt.Printf("    Certificate: %s, expires %s (%d days left)\n",
				info.Subject, info.NotAfter.Format("2006-01-02"), info.DaysLeft)
		}
	}
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  Signup: %v\n", cfg.Auth.AllowSignup)
	fmt.Printf("  OIDC auth: %v\n", cfg.Auth.OIDC.Enabled)
	fmt.Printf("  Session TTL: %s\n", cfg.Auth.SessionTTL)
	fmt.Printf("  Login limit: %d/hour\n", cfg.RateLimit.LoginPerHour)
	fmt.Printf("  Write limit: %d/hour, %d/day\n", cfg.RateLimit.WritesPerHour, cfg.RateLimit.WritesPerDay)
	fmt.Printf("  Metrics: %v", cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		fmt.Printf(" (%s%s)", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}
	fmt.Println()
	fmt.Printf("  Housekeeping: %s\n", cfg.Housekeeping.Schedule)

	for _, origin := range cfg.Server.AllowedOrigins {
		fmt.Printf("    - allowed origin %s\n", origin)
	}

	return nil
}
