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
	"path/filepath"
	"testing"
)

func TestLoadConfigurationMissingFileReturnsDefault(t *testing.T) {
	c, err := LoadConfiguration(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadConfiguration: %v", err)
	}
	want := DefaultConfiguration()
	if *c != *want {
		t.Errorf("LoadConfiguration on a missing file = %+v, want default %+v", c, want)
	}
}

func TestConfigurationSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yml")
	c := DefaultConfiguration()
	c.ValidationMode = "strict"
	c.EncryptKeyLength = 128

	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration: %v", err)
	}
	if loaded.ValidationMode != "strict" || loaded.EncryptKeyLength != 128 {
		t.Errorf("loaded = %+v, want ValidationMode=strict EncryptKeyLength=128", loaded)
	}
	if loaded.MaxParseDepth != maxParseDepth {
		t.Errorf("MaxParseDepth = %d, want %d", loaded.MaxParseDepth, maxParseDepth)
	}
}
