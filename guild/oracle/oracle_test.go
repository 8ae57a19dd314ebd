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
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/omen-guild/omnguild/guild"
)

var (
	asker      = common.HexToAddress("0xa5c0000000000000000000000000000000000001")
	arbitrator = common.HexToAddress("0xa4b1000000000000000000000000000000000002")
)

type clock struct{ now uint64 }

func (c *clock) time() uint64 { return c.now }

func TestRealitioLifecycle(t *testing.T) {
	var (
		ctx = context.Background()
		c   = &clock{now: 1000}
		r   = NewRealitio(c.time)
	)
	id, err := r.AskQuestion(asker, 0, "Is market valid?", arbitrator, 100, 1000, 0)
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if _, err := r.AskQuestion(asker, 0, "Is market valid?", arbitrator, 100, 1000, 0); !errors.Is(err, ErrQuestionExists) {
		t.Errorf("duplicate ask error = %v, want %v", err, ErrQuestionExists)
	}
	q, err := r.Question(ctx, id)
	if err != nil {
		t.Fatalf("question lookup failed: %v", err)
	}
	if q.OpeningTS != 1000 || q.Timeout != 100 {
		t.Errorf("question = %+v, want opening 1000 timeout 100", q)
	}
	if final, _ := r.IsFinalized(ctx, id); final {
		t.Fatal("unanswered question finalized")
	}
	if err := r.SubmitAnswer(id, guild.AnswerValid, big.NewInt(1)); err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if err := r.SubmitAnswer(id, guild.AnswerInvalid, big.NewInt(1)); !errors.Is(err, ErrBondTooLow) {
		t.Errorf("equal bond error = %v, want %v", err, ErrBondTooLow)
	}
	c.now = 1050
	if err := r.SubmitAnswer(id, guild.AnswerInvalid, big.NewInt(2)); err != nil {
		t.Fatalf("second answer failed: %v", err)
	}
	c.now = 1149
	if final, _ := r.IsFinalized(ctx, id); final {
		t.Fatal("question finalized before timeout")
	}
	if _, err := r.FinalAnswer(ctx, id); !errors.Is(err, ErrNotFinalized) {
		t.Errorf("early final answer error = %v, want %v", err, ErrNotFinalized)
	}
	c.now = 1150
	answer, err := r.FinalAnswer(ctx, id)
	if err != nil {
		t.Fatalf("final answer failed: %v", err)
	}
	if answer != guild.AnswerInvalid {
		t.Errorf("final answer = %x, want %x", answer, guild.AnswerInvalid)
	}
	if err := r.SubmitAnswer(id, guild.AnswerValid, big.NewInt(3)); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("late answer error = %v, want %v", err, ErrAlreadyFinalized)
	}
}

func TestRealitioUnknownQuestion(t *testing.T) {
	r := NewRealitio(nil)
	if _, err := r.Question(context.Background(), common.Hash{1}); !errors.Is(err, guild.ErrQuestionNotFound) {
		t.Errorf("error = %v, want %v", err, guild.ErrQuestionNotFound)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	addr := common.HexToAddress("0x0e0e")
	if _, err := reg.At(addr); !errors.Is(err, ErrUnknownOracle) {
		t.Fatalf("error = %v, want %v", err, ErrUnknownOracle)
	}
	r := NewRealitio(nil)
	reg.Register(addr, r)
	if o, err := reg.At(addr); err != nil || o != guild.Oracle(r) {
		t.Errorf("At = %v, %v; want registered oracle", o, err)
	}
}

// fakeCaller answers Realitio view calls from fixed values.
type fakeCaller struct {
	to        common.Address
	opening   uint32
	timeout   uint32
	finalized bool
	answer    common.Hash
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || *msg.To != f.to {
		return nil, errors.New("unexpected contract")
	}
	method, err := realitioABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "getOpeningTS":
		return method.Outputs.Pack(f.opening)
	case "getTimeout":
		return method.Outputs.Pack(f.timeout)
	case "isFinalized":
		return method.Outputs.Pack(f.finalized)
	case "getFinalAnswer":
		return method.Outputs.Pack([32]byte(f.answer))
	}
	return nil, errors.New("unexpected method")
}

func TestRemoteReader(t *testing.T) {
	var (
		ctx    = context.Background()
		addr   = common.HexToAddress("0x5e1a")
		caller = &fakeCaller{to: addr, opening: 1234, timeout: 172800, finalized: true, answer: guild.AnswerValid}
	)
	o, err := NewRemoteBackend(caller).At(addr)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	q, err := o.Question(ctx, common.Hash{7})
	if err != nil {
		t.Fatalf("question failed: %v", err)
	}
	if q.OpeningTS != 1234 || q.Timeout != 172800 {
		t.Errorf("question = %+v", q)
	}
	if final, err := o.IsFinalized(ctx, common.Hash{7}); err != nil || !final {
		t.Errorf("IsFinalized = %v, %v; want true", final, err)
	}
	if answer, err := o.FinalAnswer(ctx, common.Hash{7}); err != nil || answer != guild.AnswerValid {
		t.Errorf("FinalAnswer = %x, %v; want %x", answer, err, guild.AnswerValid)
	}

	caller.timeout = 0
	if _, err := o.Question(ctx, common.Hash{8}); !errors.Is(err, guild.ErrQuestionNotFound) {
		t.Errorf("unknown question error = %v, want %v", err, guild.ErrQuestionNotFound)
	}
	if _, err := NewRemoteBackend(caller).At(common.Address{}); !errors.Is(err, ErrUnknownOracle) {
		t.Errorf("zero address error = %v, want %v", err, ErrUnknownOracle)
	}
}
