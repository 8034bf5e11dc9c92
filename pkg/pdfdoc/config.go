/*
Copyright 2018 The pdfcpu Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pdfdoc

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Configuration is the ambient, YAML-backed settings struct (§6.4),
// grounded on pkg/pdfcpu/model/parseConfig.go's Configuration - pared
// down to validation strictness, stream encoding defaults, the shared
// parse depth cap, and default encryption parameters. The struct is
// loaded and saved only: no reader, writer or SetPermissions code in
// this package reads its fields.
type Configuration struct {
	ValidationMode        string `yaml:"validationMode"`
	DecodeAllStreams      bool   `yaml:"decodeAllStreams"`
	WriteXRefStream       bool   `yaml:"writeXRefStream"`
	WriteObjectStream     bool   `yaml:"writeObjectStream"`
	MaxParseDepth         int    `yaml:"maxParseDepth"`
	EncryptUsingAES       bool   `yaml:"encryptUsingAES"`
	EncryptKeyLength      int    `yaml:"encryptKeyLength"`
	Permissions           int32  `yaml:"permissions"`
}

// DefaultConfiguration returns the configuration pdfdoc uses when none
// is loaded from disk, mirroring the teacher's NewDefaultConfiguration
// defaults where this package has an equivalent knob.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		ValidationMode:   "relaxed",
		DecodeAllStreams: false,
		WriteXRefStream:  true,
		WriteObjectStream: true,
		MaxParseDepth:    maxParseDepth,
		EncryptUsingAES:  true,
		EncryptKeyLength: 256,
		Permissions:      -1, // full access, ISO 32000-1 Table 22 convention
	}
}

// LoadConfiguration reads and unmarshals a YAML configuration file; a
// missing file is not an error, DefaultConfiguration is returned
// instead (no file is created).
func LoadConfiguration(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfiguration(), nil
		}
		return nil, wrapErr(IoError, err, "opening configuration file")
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, wrapErr(IoError, err, "reading configuration file")
	}

	c := DefaultConfiguration()
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, wrapErr(ParseError, err, "parsing configuration file")
	}
	return c, nil
}

// Save writes c back to path as YAML, creating parent directories as
// needed.
func (c *Configuration) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrapErr(IoError, err, "creating configuration directory")
	}
	buf, err := yaml.Marshal(c)
	if err != nil {
		return wrapErr(DataError, err, "marshaling configuration")
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return wrapErr(IoError, err, "writing configuration file")
	}
	return nil
}
