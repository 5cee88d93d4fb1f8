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
	"encoding/json"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/ast"
	"github.com/icon-project/evm-codec/format"
)

const (
	linkPlaceholderLength = 40
)

type Source struct {
	ID   int       `json:"id"`
	Path string    `json:"path"`
	AST  *ast.Node `json:"ast,omitempty"`
}

type Contract struct {
	Name              string  `json:"name"`
	SourcePath        string  `json:"sourcePath,omitempty"`
	ABI               abi.ABI `json:"abi"`
	Bytecode          []byte  `json:"-"`
	DeployedBytecode  []byte  `json:"-"`
	SourceMap         string  `json:"-"`
	DeployedSourceMap string  `json:"-"`
}

// Compilation is the output of a single compiler run: sources share one id
// space, so declarations of every source can be indexed together.
type Compilation struct {
	Sources   []*Source
	Contracts []*Contract
}

func (c *Compilation) Contract(name string) *Contract {
	for _, ct := range c.Contracts {
		if ct.Name == name {
			return ct
		}
	}
	return nil
}

func (c *Compilation) addSource(s *Source) {
	for _, o := range c.Sources {
		if o.Path == s.Path || (o.AST != nil && s.AST != nil && o.AST.ID == s.AST.ID) {
			return
		}
	}
	c.Sources = append(c.Sources, s)
}

func (c *Compilation) roots() []*ast.Node {
	roots := make([]*ast.Node, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.AST != nil {
			roots = append(roots, s.AST)
		}
	}
	return roots
}

// DecodeBytecode decodes hex bytecode. Unlinked library placeholders such
// as "__$...$__" read as zero addresses.
func DecodeBytecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) == 0 {
		return nil, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "__") {
			if i+linkPlaceholderLength > len(s) {
				return nil, format.ErrorCodeInvalidValue.Errorf("truncated link placeholder at %d", i)
			}
			sb.WriteString(strings.Repeat("0", linkPlaceholderLength))
			i += linkPlaceholderLength
			continue
		}
		sb.WriteByte(s[i])
		i++
	}
	b, err := hexutil.Decode("0x" + sb.String())
	if err != nil {
		return nil, format.ErrorCodeInvalidValue.Wrapf(err, "invalid bytecode err:%s", err.Error())
	}
	return b, nil
}

type evmBytecode struct {
	Object    string `json:"object"`
	SourceMap string `json:"sourceMap"`
}

type standardOutput struct {
	Sources map[string]struct {
		ID  int             `json:"id"`
		AST json.RawMessage `json:"ast"`
	} `json:"sources"`
	Contracts map[string]map[string]struct {
		ABI json.RawMessage `json:"abi"`
		EVM struct {
			Bytecode         evmBytecode `json:"bytecode"`
			DeployedBytecode evmBytecode `json:"deployedBytecode"`
		} `json:"evm"`
	} `json:"contracts"`
	Errors []struct {
		Severity         string `json:"severity"`
		FormattedMessage string `json:"formattedMessage"`
	} `json:"errors,omitempty"`
}

// ParseStandardOutput reads the standard JSON output of the compiler.
func ParseStandardOutput(b []byte) (*Compilation, error) {
	out := &standardOutput{}
	if err := json.Unmarshal(b, out); err != nil {
		return nil, errors.Wrapf(err, "fail to unmarshal compiler output err:%s", err.Error())
	}
	for _, e := range out.Errors {
		if e.Severity == "error" {
			return nil, format.ErrorCodeInvalidValue.Errorf("compilation failed:%s", e.FormattedMessage)
		}
	}
	c := &Compilation{}
	for path, s := range out.Sources {
		src := &Source{ID: s.ID, Path: path}
		if len(s.AST) > 0 {
			n, err := ast.ParseNode(s.AST)
			if err != nil {
				return nil, errors.Wrapf(err, "fail to parse ast of %s err:%s", path, err.Error())
			}
			src.AST = n
		}
		c.addSource(src)
	}
	sort.Slice(c.Sources, func(i, j int) bool { return c.Sources[i].ID < c.Sources[j].ID })
	for path, contracts := range out.Contracts {
		for name, ct := range contracts {
			contract := &Contract{
				Name:              name,
				SourcePath:        path,
				SourceMap:         ct.EVM.Bytecode.SourceMap,
				DeployedSourceMap: ct.EVM.DeployedBytecode.SourceMap,
			}
			if err := contract.parse(ct.ABI, ct.EVM.Bytecode.Object, ct.EVM.DeployedBytecode.Object); err != nil {
				return nil, err
			}
			c.Contracts = append(c.Contracts, contract)
		}
	}
	sort.Slice(c.Contracts, func(i, j int) bool { return c.Contracts[i].Name < c.Contracts[j].Name })
	return c, nil
}

func (c *Contract) parse(abiJSON json.RawMessage, bytecode, deployed string) error {
	var err error
	if len(abiJSON) > 0 {
		if c.ABI, err = abi.Parse(abiJSON); err != nil {
			return errors.Wrapf(err, "fail to parse abi of %s err:%s", c.Name, err.Error())
		}
	}
	if c.Bytecode, err = DecodeBytecode(bytecode); err != nil {
		return errors.Wrapf(err, "bytecode of %s", c.Name)
	}
	if c.DeployedBytecode, err = DecodeBytecode(deployed); err != nil {
		return errors.Wrapf(err, "deployedBytecode of %s", c.Name)
	}
	return nil
}

type artifact struct {
	ContractName      string          `json:"contractName"`
	ABI               json.RawMessage `json:"abi"`
	AST               json.RawMessage `json:"ast"`
	Bytecode          string          `json:"bytecode"`
	DeployedBytecode  string          `json:"deployedBytecode"`
	SourceMap         string          `json:"sourceMap"`
	DeployedSourceMap string          `json:"deployedSourceMap"`
	SourcePath        string          `json:"sourcePath"`
}

// ParseArtifacts reads build artifacts of a single compilation, one
// contract per artifact. Artifacts of the same source share its AST.
func ParseArtifacts(l ...[]byte) (*Compilation, error) {
	c := &Compilation{}
	for _, b := range l {
		a := &artifact{}
		if err := json.Unmarshal(b, a); err != nil {
			return nil, errors.Wrapf(err, "fail to unmarshal artifact err:%s", err.Error())
		}
		if a.ContractName == "" {
			return nil, format.ErrorCodeInvalidValue.New("artifact without contractName")
		}
		if len(a.AST) > 0 {
			n, err := ast.ParseNode(a.AST)
			if err != nil {
				return nil, errors.Wrapf(err, "fail to parse ast of %s err:%s", a.ContractName, err.Error())
			}
			c.addSource(&Source{ID: len(c.Sources), Path: a.SourcePath, AST: n})
		}
		contract := &Contract{
			Name:              a.ContractName,
			SourcePath:        a.SourcePath,
			SourceMap:         a.SourceMap,
			DeployedSourceMap: a.DeployedSourceMap,
		}
		if err := contract.parse(a.ABI, a.Bytecode, a.DeployedBytecode); err != nil {
			return nil, err
		}
		c.Contracts = append(c.Contracts, contract)
	}
	return c, nil
}

func ParseArtifact(b []byte) (*Compilation, error) {
	return ParseArtifacts(b)
}
