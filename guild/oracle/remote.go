// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/omen-guild/omnguild/guild"
)

// RealitioABI holds the read-only subset of the Realitio contract interface.
const RealitioABI = `[
	{"type":"function","name":"getOpeningTS","stateMutability":"view","inputs":[{"name":"question_id","type":"bytes32"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"getTimeout","stateMutability":"view","inputs":[{"name":"question_id","type":"bytes32"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"isFinalized","stateMutability":"view","inputs":[{"name":"question_id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getFinalAnswer","stateMutability":"view","inputs":[{"name":"question_id","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]}
]`

var realitioABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(RealitioABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// RemoteBackend resolves Realitio contracts deployed on an Ethereum node.
type RemoteBackend struct {
	caller ethereum.ContractCaller
}

// NewRemoteBackend creates a backend issuing calls through caller.
func NewRemoteBackend(caller ethereum.ContractCaller) *RemoteBackend {
	return &RemoteBackend{caller: caller}
}

// DialRemoteBackend connects to the node at rawurl.
func DialRemoteBackend(ctx context.Context, rawurl string) (*RemoteBackend, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial oracle node: %w", err)
	}
	return NewRemoteBackend(client), client, nil
}

// At implements guild.OracleBackend.
func (b *RemoteBackend) At(addr common.Address) (guild.Oracle, error) {
	if addr == (common.Address{}) {
		return nil, ErrUnknownOracle
	}
	return &Remote{address: addr, caller: b.caller}, nil
}

// Remote is a Realitio contract read over JSON-RPC at the latest block.
type Remote struct {
	address common.Address
	caller  ethereum.ContractCaller
}

func (r *Remote) call(ctx context.Context, method string, id common.Hash) ([]interface{}, error) {
	input, err := realitioABI.Pack(method, id)
	if err != nil {
		return nil, err
	}
	output, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return realitioABI.Unpack(method, output)
}

// Question implements guild.Oracle. Realitio reports unknown questions with a
// zero timeout.
func (r *Remote) Question(ctx context.Context, id common.Hash) (*guild.Question, error) {
	out, err := r.call(ctx, "getTimeout", id)
	if err != nil {
		return nil, err
	}
	timeout := out[0].(uint32)
	if timeout == 0 {
		return nil, guild.ErrQuestionNotFound
	}
	if out, err = r.call(ctx, "getOpeningTS", id); err != nil {
		return nil, err
	}
	return &guild.Question{ID: id, OpeningTS: uint64(out[0].(uint32)), Timeout: uint64(timeout)}, nil
}

// IsFinalized implements guild.Oracle.
func (r *Remote) IsFinalized(ctx context.Context, id common.Hash) (bool, error) {
	out, err := r.call(ctx, "isFinalized", id)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// FinalAnswer implements guild.Oracle.
func (r *Remote) FinalAnswer(ctx context.Context, id common.Hash) (common.Hash, error) {
	out, err := r.call(ctx, "getFinalAnswer", id)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(out[0].([32]byte)), nil
}
