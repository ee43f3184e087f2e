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

// Package netconfig loads server_params/client_params (spec.md section 6)
// from a viper.Viper instance, applying the documented defaults before
// validating the result with go-playground/validator struct tags.
package netconfig

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/alecmus/lecnet/netlog"
	"github.com/alecmus/lecnet/tcp/server"
)

// ServerParams mirrors spec.md's server_params table.
type ServerParams struct {
	IP                    string `mapstructure:"ip" json:"ip" yaml:"ip" toml:"ip" validate:"required,ip_addr|hostname"`
	Port                  int    `mapstructure:"port" json:"port" yaml:"port" toml:"port" validate:"required,min=1,max=65535"`
	MaxClients            int    `mapstructure:"max_clients" json:"max_clients" yaml:"max_clients" toml:"max_clients" validate:"min=1"`
	UseTLS                bool   `mapstructure:"use_tls" json:"use_tls" yaml:"use_tls" toml:"use_tls"`
	ServerCert            string `mapstructure:"server_cert" json:"server_cert" yaml:"server_cert" toml:"server_cert"`
	ServerCertKey         string `mapstructure:"server_cert_key" json:"server_cert_key" yaml:"server_cert_key" toml:"server_cert_key"`
	ServerCertKeyPassword string `mapstructure:"server_cert_key_password" json:"server_cert_key_password" yaml:"server_cert_key_password" toml:"server_cert_key_password"`
	MagicNumber           uint32 `mapstructure:"magic_number" json:"magic_number" yaml:"magic_number" toml:"magic_number"`
}

// Validate applies go-playground/validator struct-tag checks.
func (p ServerParams) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("netconfig: invalid server_params: %w", err)
	}
	return nil
}

func serverDefaults(v *viper.Viper) {
	v.SetDefault("ip", "0.0.0.0")
	v.SetDefault("port", 50001)
	v.SetDefault("max_clients", 1000)
	v.SetDefault("use_tls", false)
	v.SetDefault("server_cert", "server.crt")
	v.SetDefault("server_cert_key", "server.crt")
	v.SetDefault("server_cert_key_password", "")
	v.SetDefault("magic_number", 0)
}

// LoadServerParams reads server_params out of v (file/env/flags, however v
// was configured by the caller), applying spec.md's documented defaults for
// any key left unset, then validates the result.
func LoadServerParams(v *viper.Viper) (ServerParams, error) {
	if v == nil {
		v = viper.New()
	}
	serverDefaults(v)

	var p ServerParams
	if err := v.Unmarshal(&p); err != nil {
		return ServerParams{}, fmt.Errorf("netconfig: unmarshal server_params: %w", err)
	}

	if p.ServerCertKey == "" {
		p.ServerCertKey = p.ServerCert
	}

	if err := p.Validate(); err != nil {
		return ServerParams{}, err
	}
	return p, nil
}

// ToServerParams builds the tcp/server.Params this configuration describes.
// Callers still need to supply OnReceive and may override Log.
func (p ServerParams) ToServerParams(onReceive server.OnReceive, log netlog.Func) server.Params {
	return server.Params{
		IP:                    p.IP,
		Port:                  p.Port,
		MaxClients:            p.MaxClients,
		UseTLS:                p.UseTLS,
		ServerCert:            p.ServerCert,
		ServerCertKey:         p.ServerCertKey,
		ServerCertKeyPassword: p.ServerCertKeyPassword,
		MagicNumber:           p.MagicNumber,
		OnReceive:             onReceive,
		Log:                   log,
	}
}
