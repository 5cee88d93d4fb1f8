/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package project

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/icon-project/evm-codec/ast"
	"github.com/icon-project/evm-codec/decode"
	"github.com/icon-project/evm-codec/format"
)

// SourceRange is one entry of a compressed source map, "s:l:f:j".
type SourceRange struct {
	Start  int    `json:"start"`
	Length int    `json:"length"`
	File   int    `json:"file"`
	Jump   string `json:"jump,omitempty"`
}

func (r SourceRange) src() string {
	return strconv.Itoa(r.Start) + ":" + strconv.Itoa(r.Length) + ":" + strconv.Itoa(r.File)
}

// ParseSourceMap expands a compressed source map. Empty fields repeat the
// value of the previous entry.
func ParseSourceMap(s string) ([]SourceRange, error) {
	if s == "" {
		return nil, nil
	}
	entries := strings.Split(s, ";")
	l := make([]SourceRange, 0, len(entries))
	prev := SourceRange{File: -1}
	for i, e := range entries {
		cur := prev
		fields := strings.Split(e, ":")
		for j, f := range fields {
			if f == "" {
				continue
			}
			var err error
			switch j {
			case 0:
				cur.Start, err = strconv.Atoi(f)
			case 1:
				cur.Length, err = strconv.Atoi(f)
			case 2:
				cur.File, err = strconv.Atoi(f)
			case 3:
				cur.Jump = f
			}
			if err != nil {
				return nil, format.ErrorCodeInvalidValue.Wrapf(err,
					"invalid source map entry %d:%q err:%s", i, e, err.Error())
			}
		}
		l = append(l, cur)
		prev = cur
	}
	return l, nil
}

type Instruction struct {
	ProgramCounter int
	Op             vm.OpCode
}

// Disassemble splits code into instructions, skipping push data.
func Disassemble(code []byte) []Instruction {
	var l []Instruction
	for pc := 0; pc < len(code); pc++ {
		op := vm.OpCode(code[pc])
		l = append(l, Instruction{ProgramCounter: pc, Op: op})
		if op >= vm.PUSH1 && op <= vm.PUSH32 {
			pc += int(op-vm.PUSH1) + 1
		}
	}
	return l
}

type functionDefinition struct {
	node     *ast.Node
	contract string
}

func functionDefinitions(d ast.Declarations) map[string]functionDefinition {
	m := make(map[string]functionDefinition)
	for _, n := range d {
		if n.NodeType != ast.NodeFunctionDefinition || n.Src == "" {
			continue
		}
		fd := functionDefinition{node: n}
		if c, ok := d[n.Scope]; ok && c.NodeType == ast.NodeContractDefinition {
			fd.contract = c.Name
		}
		m[n.Src] = fd
	}
	return m
}

// InternalFunctions builds the internal function table of code. An entry
// point is a JUMPDEST whose source range is a function definition. A
// JUMPDEST directly followed by INVALID is the designated invalid function.
func InternalFunctions(code []byte, sourceMap string, d ast.Declarations) (map[int]*decode.InternalFunction, error) {
	ranges, err := ParseSourceMap(sourceMap)
	if err != nil {
		return nil, err
	}
	instructions := Disassemble(code)
	defs := functionDefinitions(d)
	fs := make(map[int]*decode.InternalFunction)
	for i, ins := range instructions {
		if ins.Op != vm.JUMPDEST {
			continue
		}
		if i+1 < len(instructions) && instructions[i+1].Op == vm.INVALID {
			fs[ins.ProgramCounter] = &decode.InternalFunction{
				ProgramCounter:      ins.ProgramCounter,
				IsDesignatedInvalid: true,
			}
			continue
		}
		if i >= len(ranges) {
			continue
		}
		fd, ok := defs[ranges[i].src()]
		if !ok {
			continue
		}
		fs[ins.ProgramCounter] = &decode.InternalFunction{
			ProgramCounter:       ins.ProgramCounter,
			Name:                 fd.node.Name,
			DefiningContractName: fd.contract,
			ID:                   fd.node.ID,
		}
	}
	return fs, nil
}
