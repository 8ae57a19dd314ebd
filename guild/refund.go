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

package guild

import (
	"math/big"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// refund reimburses the sender of a vote from the native balance of the guild.
// A guild that cannot afford the refund skips it; the votes stand regardless.
func (g *Guild) refund(tx *Tx, gasCap uint64, priceCap *big.Int) {
	if g.backends.Treasury == nil || gasCap == 0 || tx.GasUsed == 0 || tx.GasPrice == nil {
		return
	}
	amount := reimbursement(tx.GasUsed, gasCap, tx.GasPrice, priceCap)
	if amount == nil || amount.Sign() == 0 {
		return
	}
	if balance := g.backends.Treasury.BalanceOf(g.address); balance.Cmp(amount) < 0 {
		log.Debug("Skipping vote refund, treasury underfunded", "voter", tx.From, "refund", amount, "balance", balance)
		return
	}
	if err := g.backends.Treasury.Transfer(g.address, tx.From, amount); err != nil {
		log.Warn("Vote refund failed", "voter", tx.From, "refund", amount, "err", err)
	}
}

// reimbursement computes min(gasUsed, gasCap) * min(gasPrice, priceCap). It
// returns nil if the product does not fit in 256 bits.
func reimbursement(gasUsed, gasCap uint64, gasPrice, priceCap *big.Int) *big.Int {
	gas := min(gasUsed, gasCap)

	price, overflow := uint256.FromBig(gasPrice)
	if priceCap != nil {
		ceiling, capOverflow := uint256.FromBig(priceCap)
		if !capOverflow && (overflow || price.Gt(ceiling)) {
			price, overflow = ceiling, false
		}
	}
	if overflow || gasPrice.Sign() < 0 {
		return nil
	}
	total, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(gas), price)
	if overflow {
		return nil
	}
	return total.ToBig()
}
