// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Config_01(t *testing.T) {
	opts := check_Load(t, "zkvm.toml", "shard_size = 1024\nmax_cycles = 5000\n")
	//
	assert.Equal(t, uint32(1024), opts.ShardSize)
	assert.Equal(t, uint64(5000), opts.MaxCycles)
	// defaults retained
	assert.Equal(t, Default().MinLog2Height, opts.MinLog2Height)
	assert.True(t, opts.Trace)
}

func Test_Config_02(t *testing.T) {
	opts := check_Load(t, "zkvm.yaml", "shard_size: 64\ntrace: false\nmin_log2_height: 2\n")
	//
	assert.Equal(t, uint32(64), opts.ShardSize)
	assert.False(t, opts.Trace)
	assert.Equal(t, uint(2), opts.MinLog2Height)
}

func Test_Config_03(t *testing.T) {
	dir := t.TempDir()
	// unknown format
	name := filepath.Join(dir, "zkvm.ini")
	require.NoError(t, os.WriteFile(name, []byte("x=1"), 0o600))
	_, err := Load(name)
	assert.Error(t, err)
	// invalid shard size
	name = filepath.Join(dir, "zkvm.toml")
	require.NoError(t, os.WriteFile(name, []byte("shard_size = 0"), 0o600))
	_, err = Load(name)
	assert.Error(t, err)
	//
	opts := Default()
	opts.ShardSize = 1 << 23
	assert.Error(t, opts.Validate())
	assert.NoError(t, Default().Validate())
}

func check_Load(t *testing.T, name string, contents string) Options {
	t.Helper()
	//
	filename := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(filename, []byte(contents), 0o600))
	//
	opts, err := Load(filename)
	require.NoError(t, err)
	//
	return opts
}
