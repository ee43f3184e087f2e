/*
 * MIT License
 *
 * Copyright (c) 2024 lecnet contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package netconfig

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/alecmus/lecnet/netlog"
	"github.com/alecmus/lecnet/tcp/client"
)

// ClientParams mirrors spec.md's client_params table.
type ClientParams struct {
	Address        string `mapstructure:"address" json:"address" yaml:"address" toml:"address" validate:"required,ip_addr|hostname"`
	Port           int    `mapstructure:"port" json:"port" yaml:"port" toml:"port" validate:"required,min=1,max=65535"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	UseSSL         bool   `mapstructure:"use_ssl" json:"use_ssl" yaml:"use_ssl" toml:"use_ssl"`
	CACertPath     string `mapstructure:"ca_cert_path" json:"ca_cert_path" yaml:"ca_cert_path" toml:"ca_cert_path"`
	MagicNumber    uint32 `mapstructure:"magic_number" json:"magic_number" yaml:"magic_number" toml:"magic_number"`
}

// Validate applies go-playground/validator struct-tag checks.
func (p ClientParams) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("netconfig: invalid client_params: %w", err)
	}
	return nil
}

func clientDefaults(v *viper.Viper) {
	v.SetDefault("address", "127.0.0.1")
	v.SetDefault("port", 50001)
	v.SetDefault("timeout_seconds", 10)
	v.SetDefault("use_ssl", true)
	v.SetDefault("ca_cert_path", "ca.crt")
	v.SetDefault("magic_number", 0)
}

// LoadClientParams reads client_params out of v, applying spec.md's
// documented defaults for any key left unset, then validates the result.
// timeout_seconds intentionally allows non-positive values through
// unvalidated: spec.md defines non-positive as "no connect timeout", a valid
// configuration rather than an error.
func LoadClientParams(v *viper.Viper) (ClientParams, error) {
	if v == nil {
		v = viper.New()
	}
	clientDefaults(v)

	var p ClientParams
	if err := v.Unmarshal(&p); err != nil {
		return ClientParams{}, fmt.Errorf("netconfig: unmarshal client_params: %w", err)
	}

	if err := p.Validate(); err != nil {
		return ClientParams{}, err
	}
	return p, nil
}

// ToClientParams builds the tcp/client.Params this configuration describes.
func (p ClientParams) ToClientParams(log netlog.Func) client.Params {
	return client.Params{
		Address:        p.Address,
		Port:           p.Port,
		TimeoutSeconds: p.TimeoutSeconds,
		UseSSL:         p.UseSSL,
		CACertPath:     p.CACertPath,
		MagicNumber:    p.MagicNumber,
		Log:            log,
	}
}
