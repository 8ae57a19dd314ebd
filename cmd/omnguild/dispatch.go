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

package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/omen-guild/omnguild/guild"
	"github.com/omen-guild/omnguild/guild/token"
)

const erc20ABI = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	erc20 = func() abi.ABI {
		parsed, err := abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(err)
		}
		return parsed
	}()

	errUnsupportedCall = errors.New("unsupported call")
	errUnderfunded     = errors.New("guild balance too low for batch")
)

// ledgerDispatcher executes proposal actions against the node's ledgers. Value
// moves native currency from the treasury; calls to the token contract may
// carry an ERC20 transfer. Anything else is rejected.
type ledgerDispatcher struct {
	tokenAddr common.Address
	token     *token.Ledger
	native    *token.Ledger
}

// Dispatch implements guild.Dispatcher. Both ledgers are updated in one step,
// so a failing transfer leaves every balance untouched.
func (d *ledgerDispatcher) Dispatch(ctx context.Context, calls []guild.Call) error {
	var native, tokens []token.Transfer
	for i, call := range calls {
		if call.Value != nil && call.Value.Sign() > 0 {
			native = append(native, token.Transfer{From: call.From, To: call.To, Amount: call.Value})
		}
		if len(call.Data) == 0 {
			continue
		}
		if call.To != d.tokenAddr {
			return fmt.Errorf("%w: call %d to %s", errUnsupportedCall, i, call.To)
		}
		to, amount, err := unpackTransfer(call.Data)
		if err != nil {
			return fmt.Errorf("call %d: %w", i, err)
		}
		tokens = append(tokens, token.Transfer{From: call.From, To: to, Amount: amount})
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := token.ApplyBatches(
		token.Batch{Ledger: d.native, Transfers: native},
		token.Batch{Ledger: d.token, Transfers: tokens},
	)
	if errors.Is(err, token.ErrInsufficientBalance) {
		return fmt.Errorf("%w: %w", errUnderfunded, err)
	}
	return err
}

func unpackTransfer(data []byte) (common.Address, *big.Int, error) {
	if len(data) < 4 {
		return common.Address{}, nil, fmt.Errorf("%w: short calldata", errUnsupportedCall)
	}
	method, err := erc20.MethodById(data[:4])
	if err != nil || method.Name != "transfer" {
		return common.Address{}, nil, fmt.Errorf("%w: unknown token method %x", errUnsupportedCall, data[:4])
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, nil, err
	}
	return args[0].(common.Address), args[1].(*big.Int), nil
}
