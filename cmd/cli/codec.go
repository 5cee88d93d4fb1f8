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

package main

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/api"
	"github.com/icon-project/evm-codec/project"
)

// LoadCompilations reads artifact files into a single compilation and
// each standard JSON output into its own.
func LoadCompilations(artifacts, standardOutputs []string) ([]*project.Compilation, error) {
	l := make([]*project.Compilation, 0, len(standardOutputs)+1)
	if len(artifacts) > 0 {
		bs := make([][]byte, 0, len(artifacts))
		for _, file := range artifacts {
			b, err := os.ReadFile(file)
			if err != nil {
				return nil, errors.Wrapf(err, "fail to read artifact file=%s", file)
			}
			bs = append(bs, b)
		}
		c, err := project.ParseArtifacts(bs...)
		if err != nil {
			return nil, err
		}
		l = append(l, c)
	}
	for _, file := range standardOutputs {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to read standard output file=%s", file)
		}
		c, err := project.ParseStandardOutput(b)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to parse standard output file=%s", file)
		}
		l = append(l, c)
	}
	if len(l) == 0 {
		return nil, errors.New("no artifact or standard output given")
	}
	return l, nil
}

func AddProjectFlags(fs *pflag.FlagSet) {
	fs.StringSlice("artifact", nil, "Compiled artifact file")
	fs.StringSlice("standard_output", nil, "Compiler standard JSON output file")
}

func ProjectDecoder(vc *viper.Viper) (*project.Decoder, error) {
	compilations, err := LoadCompilations(vc.GetStringSlice("artifact"), vc.GetStringSlice("standard_output"))
	if err != nil {
		return nil, err
	}
	return project.NewDecoder(compilations, log.GlobalLogger())
}

func NewSelectorCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "selector", "Print selector of signature")
	rootCmd.Use = "selector SIGNATURE"
	rootCmd.Args = cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1))
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		e, err := abi.ParseSignature(args[0])
		if err != nil {
			return err
		}
		r := &api.SelectorResponse{Type: e.Type, Signature: e.Signature(), Selector: e.SelectorHex()}
		if e.Type == abi.EntryEvent {
			r.Topic = e.Topic().Hex()
		}
		return cli.JsonPrettyPrintln(os.Stdout, r)
	}
	return rootCmd, rootVc
}

func NewLayoutCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "layout", "Print storage layout of contract")
	rootCmd.Use = "layout CONTRACT"
	rootCmd.Args = cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1))
	AddProjectFlags(rootCmd.Flags())
	cli.BindPFlags(rootVc, rootCmd.Flags())
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		d, err := ProjectDecoder(rootVc)
		if err != nil {
			return err
		}
		a, err := d.Layout(args[0])
		if err != nil {
			return err
		}
		return cli.JsonPrettyPrintln(os.Stdout, a)
	}
	return rootCmd, rootVc
}

func NewDecodeCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "decode", "Decode raw data with compiled contracts")
	AddProjectFlags(rootCmd.PersistentFlags())
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "calldata CONTRACT DATA",
		Short: "Decode calldata of contract",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hexutil.Decode(args[1])
			if err != nil {
				return errors.Wrapf(err, "invalid data=%s", args[1])
			}
			d, err := ProjectDecoder(rootVc)
			if err != nil {
				return err
			}
			r, err := d.DecodeContractCalldata(args[0], data)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "constructor CONTRACT DATA",
		Short: "Decode constructor arguments of contract",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hexutil.Decode(args[1])
			if err != nil {
				return errors.Wrapf(err, "invalid data=%s", args[1])
			}
			d, err := ProjectDecoder(rootVc)
			if err != nil {
				return err
			}
			r, err := d.DecodeConstructor(args[0], data)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	logCmd := &cobra.Command{
		Use:   "log DATA",
		Short: "Decode event log",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hexutil.Decode(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid data=%s", args[0])
			}
			topics, err := cmd.Flags().GetStringSlice("topic")
			if err != nil {
				return err
			}
			lg := &types.Log{Data: data}
			for _, topic := range topics {
				b, err := hexutil.Decode(topic)
				if err != nil || len(b) != common.HashLength {
					return errors.Errorf("invalid topic=%s", topic)
				}
				lg.Topics = append(lg.Topics, common.BytesToHash(b))
			}
			d, err := ProjectDecoder(rootVc)
			if err != nil {
				return err
			}
			if name, _ := cmd.Flags().GetString("contract"); len(name) > 0 {
				if err = d.RegisterAddress(lg.Address, name); err != nil {
					return err
				}
			}
			r, err := d.DecodeLog(lg)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	logCmd.Flags().StringSlice("topic", nil, "Log topic")
	logCmd.Flags().String("contract", "", "Contract which emitted the log")
	rootCmd.AddCommand(logCmd)

	revertCmd := &cobra.Command{
		Use:   "revert DATA",
		Short: "Decode revert data",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := hexutil.Decode(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid data=%s", args[0])
			}
			d, err := ProjectDecoder(rootVc)
			if err != nil {
				return err
			}
			var address common.Address
			if name, _ := cmd.Flags().GetString("contract"); len(name) > 0 {
				if err = d.RegisterAddress(address, name); err != nil {
					return err
				}
			}
			r, err := d.DecodeRevert(address, data)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	revertCmd.Flags().String("contract", "", "Contract which reverted")
	rootCmd.AddCommand(revertCmd)
	return rootCmd, rootVc
}
