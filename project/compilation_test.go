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
	"testing"

	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/evm-codec/ast"
)

const standardOutputJSON = `{
  "sources": {
    "contracts/Box.sol": {
      "id": 0,
      "ast": {"id": 20, "nodeType": "SourceUnit", "src": "0:90:0", "nodes": [
        {"id": 21, "nodeType": "ContractDefinition", "name": "Box", "contractKind": "contract",
          "linearizedBaseContracts": [21], "src": "0:90:0", "nodes": [
          {"id": 22, "nodeType": "VariableDeclaration", "name": "value", "stateVariable": true, "mutability": "mutable",
            "typeDescriptions": {"typeIdentifier": "t_uint64", "typeString": "uint64"}}
        ]}
      ]}
    }
  },
  "contracts": {
    "contracts/Box.sol": {
      "Box": {
        "abi": [{"type": "function", "name": "store", "stateMutability": "nonpayable",
          "inputs": [{"name": "v", "type": "uint64"}], "outputs": []}],
        "evm": {
          "bytecode": {"object": "6080__$0123456789abcdef0123456789abcdef01$__00", "sourceMap": "0:90:0:-;;"},
          "deployedBytecode": {"object": "", "sourceMap": ""}
        }
      }
    }
  }
}`

func Test_DecodeBytecode(t *testing.T) {
	b, err := DecodeBytecode("0x6080__$0123456789abcdef0123456789abcdef01$__00")
	require.NoError(t, err)
	assert.Len(t, b, 23)
	assert.Equal(t, []byte{0x60, 0x80}, b[:2])
	assert.Equal(t, make([]byte, 20), b[2:22])
	assert.Equal(t, byte(0), b[22])

	b, err = DecodeBytecode("")
	assert.NoError(t, err)
	assert.Nil(t, b)

	_, err = DecodeBytecode("0x60__$01")
	assert.Error(t, err)
	_, err = DecodeBytecode("0xzz")
	assert.Error(t, err)
}

func Test_ParseStandardOutput(t *testing.T) {
	c, err := ParseStandardOutput([]byte(standardOutputJSON))
	require.NoError(t, err)
	require.Len(t, c.Sources, 1)
	assert.Equal(t, "contracts/Box.sol", c.Sources[0].Path)
	require.NotNil(t, c.Sources[0].AST)
	assert.Equal(t, 20, c.Sources[0].AST.ID)

	box := c.Contract("Box")
	require.NotNil(t, box)
	assert.Equal(t, "contracts/Box.sol", box.SourcePath)
	assert.Equal(t, "store", box.ABI.Functions()[0].Name)
	assert.Len(t, box.Bytecode, 23)
	assert.Nil(t, box.DeployedBytecode)
	assert.Equal(t, "0:90:0:-;;", box.SourceMap)

	_, err = ParseStandardOutput([]byte(`{"errors":[{"severity":"error","formattedMessage":"ParserError"}]}`))
	assert.Error(t, err)
}

func Test_ParseArtifacts(t *testing.T) {
	c := loadCompilation(t)
	require.Len(t, c.Sources, 1)
	assert.Equal(t, "contracts/Token.sol", c.Sources[0].Path)
	token := c.Contract("Token")
	require.NotNil(t, token)
	assert.Equal(t, []byte{0x60, 0x04, 0x56, 0x5b, 0x00, 0x5b, 0xfe}, token.DeployedBytecode)

	_, err := ParseArtifact([]byte(`{"abi":[]}`))
	assert.Error(t, err)
}

func Test_ParseSourceMap(t *testing.T) {
	l, err := ParseSourceMap("1:2:1;:9;2:1:2;;")
	require.NoError(t, err)
	assert.Equal(t, []SourceRange{
		{Start: 1, Length: 2, File: 1},
		{Start: 1, Length: 9, File: 1},
		{Start: 2, Length: 1, File: 2},
		{Start: 2, Length: 1, File: 2},
		{Start: 2, Length: 1, File: 2},
	}, l)

	l, err = ParseSourceMap("0:10:0:i;5::-1:o")
	require.NoError(t, err)
	assert.Equal(t, SourceRange{Start: 5, Length: 10, File: -1, Jump: "o"}, l[1])

	_, err = ParseSourceMap("0:x:0")
	assert.Error(t, err)
}

func Test_Disassemble(t *testing.T) {
	code := append([]byte{0x60, 0x80, 0x5b, 0x7f}, make([]byte, 32)...)
	code = append(code, 0x00)
	l := Disassemble(code)
	require.Len(t, l, 4)
	assert.Equal(t, Instruction{ProgramCounter: 2, Op: vm.JUMPDEST}, l[1])
	assert.Equal(t, Instruction{ProgramCounter: 3, Op: vm.PUSH32}, l[2])
	assert.Equal(t, Instruction{ProgramCounter: 36, Op: vm.STOP}, l[3])
}

func Test_InternalFunctions(t *testing.T) {
	c := loadCompilation(t)
	token := c.Contract("Token")
	fs, err := InternalFunctions(token.DeployedBytecode, token.DeployedSourceMap, ast.Index(c.roots()...))
	require.NoError(t, err)
	require.Len(t, fs, 2)

	move := fs[3]
	require.NotNil(t, move)
	assert.Equal(t, "_move", move.Name)
	assert.Equal(t, "Token", move.DefiningContractName)
	assert.Equal(t, 10, move.ID)
	assert.False(t, move.IsDesignatedInvalid)

	invalid := fs[5]
	require.NotNil(t, invalid)
	assert.True(t, invalid.IsDesignatedInvalid)
	assert.Empty(t, invalid.Name)
}
