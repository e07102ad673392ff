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
package syscall

import (
	"encoding/binary"

	"github.com/consensys/go-zkvm/pkg/zkvm/fault"
	"github.com/consensys/go-zkvm/pkg/zkvm/program"
	log "github.com/sirupsen/logrus"
)

// File descriptors recognised by the WRITE syscall.
const (
	FdStdout       = 1
	FdStderr       = 2
	FdPublicValues = 13
	FdHint         = 14
	// LowestHookFd is the smallest file descriptor which can be hooked.
	LowestHookFd = 10
)

// WriteHandler writes nbytes (given in a2) starting at a given address to a
// file descriptor.  The bytes are read without creating records, since they
// only reach I/O streams.
type WriteHandler struct{}

// Rebinds implementation for the UnconstrainedAccess interface.
func (h *WriteHandler) Rebinds() bool {
	return false
}

// Execute implementation for the Handler interface.
func (h *WriteHandler) Execute(ctx Context, code Code, fd, ptr uint32) (uint32, bool, error) {
	peeker, err := ctx.Unconstrained()
	if err != nil {
		return 0, false, err
	}
	//
	data, err := peekBytes(peeker, ptr, peeker.Register(program.A2).Value())
	if err != nil {
		return 0, false, err
	}
	//
	switch fd {
	case FdStdout:
		_, err = ctx.Stdout().Write(data)
	case FdStderr:
		_, err = ctx.Stderr().Write(data)
	case FdPublicValues:
		ctx.WritePublicValues(data)
	case FdHint:
		ctx.PushHint(data)
	default:
		if hook, ok := ctx.Hook(fd); ok && fd >= LowestHookFd {
			for _, hint := range hook(data) {
				ctx.PushHint(hint)
			}
		} else {
			log.Warnf("write to unknown file descriptor %d ignored", fd)
		}
	}
	//
	return 0, false, err
}

// Read nbytes starting from a (possibly unaligned) address.  The range must
// lie below the largest data address.
func peekBytes(peeker Peeker, ptr uint32, nbytes uint32) ([]byte, error) {
	if uint64(ptr)+uint64(nbytes) > uint64(program.MaxAddress) {
		return nil, &fault.ExecutionError{Kind: fault.InvalidMemoryAccess, Opcode: Write.String(), Addr: ptr}
	} else if nbytes == 0 {
		return nil, nil
	}
	//
	var (
		data  = make([]byte, 0, nbytes)
		start = ptr &^ 3
		end   = ptr + nbytes
		word  [4]byte
	)
	//
	words, err := peeker.PeekSlice(start, uint((end-start+3)/4))
	if err != nil {
		return nil, err
	}
	//
	for i, w := range words {
		binary.LittleEndian.PutUint32(word[:], w.Value())
		//
		for j := range uint32(4) {
			if addr := start + uint32(i)*4 + j; addr >= ptr && addr < end {
				data = append(data, word[j])
			}
		}
	}
	//
	return data, nil
}

// CommitHandler sets one word of the committed public values digest.
type CommitHandler struct{}

// Execute implementation for the Handler interface.
func (h *CommitHandler) Execute(ctx Context, code Code, index, word uint32) (uint32, bool, error) {
	if index >= 8 {
		return 0, false, &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Code: uint32(code)}
	}
	//
	ctx.Commit(int(index), word)
	//
	return 0, false, nil
}

// HintHandler provides access to the hint stream.  HINT_LEN returns the length
// of the next hint (or 0xFFFFFFFF if there is none).  HINT_READ consumes the
// next hint, which must have exactly the given length, and places it into
// memory as the initial value of a word aligned, untouched region.
type HintHandler struct{}

// Execute implementation for the Handler interface.
func (h *HintHandler) Execute(ctx Context, code Code, arg1, arg2 uint32) (uint32, bool, error) {
	switch code {
	case HintLen:
		if hint, ok := ctx.PeekHint(); ok {
			return uint32(len(hint)), true, nil
		}
		//
		return 0xFFFFFFFF, true, nil
	case HintRead:
		return 0, false, h.read(ctx, code, arg1, arg2)
	default:
		return 0, false, &fault.ExecutionError{Kind: fault.UnsupportedSyscall, Code: uint32(code)}
	}
}

func (h *HintHandler) read(ctx Context, code Code, ptr, length uint32) error {
	hint, ok := ctx.PeekHint()
	//
	if !ok || uint32(len(hint)) != length || ptr%4 != 0 {
		return &fault.ExecutionError{Kind: fault.InvalidSyscallUsage, Code: uint32(code), Addr: ptr}
	}
	//
	hint, _ = ctx.NextHint()
	//
	for i := 0; i < len(hint); i += 4 {
		var word [4]byte
		//
		copy(word[:], hint[i:])
		//
		if err := ctx.Initialize(ptr+uint32(i), binary.LittleEndian.Uint32(word[:])); err != nil {
			return err
		}
	}
	//
	return nil
}
