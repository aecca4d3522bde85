// SPDX-License-Identifier: Apache-2.0

package config

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.App.LinkSecret == "" {
		return ErrInvalidAppConfigs
	}

	if cfg.Server.HTTPAddress == "" {
		return ErrInvalidServerConfigs
	}

	// TLS is all-or-nothing: a lone cert or key is a misconfiguration.
	if (cfg.Server.TLSCertPath == "") != (cfg.Server.TLSKeyPath == "") {
		return ErrInvalidServerConfigs
	}

	return nil
}
