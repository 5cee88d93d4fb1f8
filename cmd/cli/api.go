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
	"encoding/json"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/api"
	"github.com/icon-project/evm-codec/database"
	"github.com/icon-project/evm-codec/project"
)

func ClientPersistentPreRunE(vc *viper.Viper, c *api.Client) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFlagsWithViper(vc, cmd.Flags()); err != nil {
			return err
		}
		l := log.GlobalLogger()
		if lv, err := log.ParseLevel(vc.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		} else {
			l.SetLevel(lv)
		}
		if lv, err := log.ParseLevel(vc.GetString("console_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel console_level err:%s", err.Error())
		} else {
			l.SetConsoleLevel(lv)
		}
		dumpLogLevel, err := log.ParseLevel(vc.GetString("dump_log_level"))
		if err != nil {
			return errors.Wrapf(err, "fail to parseLevel dump_log_level err:%s", err.Error())
		} else {
			dumpLogLevel = project.EnsureTransportLogLevel(dumpLogLevel)
		}
		*c = *api.NewClient(vc.GetString("url"), dumpLogLevel, l)
		return nil
	}
}

func AddClientFlags(c *cobra.Command) {
	pFlags := c.PersistentFlags()
	pFlags.String("url", "http://localhost:8080", "server address")
	pFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("dump_log_level", "trace", "client dump log level (trace,debug,info)")
}

func decodeHexArg(s string) (hexutil.Bytes, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex=%s", s)
	}
	return b, nil
}

func printRaw(r json.RawMessage, err error) error {
	if err != nil {
		return err
	}
	return cli.JsonPrettyPrintln(os.Stdout, r)
}

func NewApiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "api", "API cli")
	var c api.Client
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "contracts",
		Short: "Get list of contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Contracts()
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "layout CONTRACT",
		Short: "Get storage layout of contract",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRaw(c.Layout(args[0]))
		},
	})

	variablesCmd := &cobra.Command{
		Use:   "variables CONTRACT ADDRESS",
		Short: "Read state variables of deployed contract",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &api.VariablesRequest{Address: args[1]}
			req.Block, _ = cmd.Flags().GetString("block")
			if keys, _ := cmd.Flags().GetString("keys"); len(keys) > 0 {
				if err := json.Unmarshal([]byte(keys), &req.Keys); err != nil {
					return errors.Wrapf(err, "invalid keys=%s", keys)
				}
			}
			return printRaw(c.Variables(args[0], req))
		},
	}
	variablesCmd.Flags().String("block", "", "Block number, latest if empty")
	variablesCmd.Flags().String("keys", "", "Watched mapping keys as JSON, [{\"variable\":\"balances\",\"path\":[\"0x...\"]}]")
	rootCmd.AddCommand(variablesCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw data",
	}
	rootCmd.AddCommand(decodeCmd)
	calldataCmd := &cobra.Command{
		Use:   "calldata DATA",
		Short: "Decode calldata",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHexArg(args[0])
			if err != nil {
				return err
			}
			to, _ := cmd.Flags().GetString("to")
			return printRaw(c.DecodeCalldata(&api.CalldataRequest{To: to, Data: data}))
		},
	}
	calldataCmd.Flags().String("to", "", "Called address")
	decodeCmd.AddCommand(calldataCmd)

	logCmd := &cobra.Command{
		Use:   "log DATA",
		Short: "Decode event log",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHexArg(args[0])
			if err != nil {
				return err
			}
			req := &api.LogRequest{Data: data}
			req.Address, _ = cmd.Flags().GetString("address")
			topics, _ := cmd.Flags().GetStringSlice("topic")
			for _, topic := range topics {
				b, err := decodeHexArg(topic)
				if err != nil {
					return err
				}
				req.Topics = append(req.Topics, common.BytesToHash(b))
			}
			return printRaw(c.DecodeLog(req))
		},
	}
	logCmd.Flags().String("address", "", "Emitting address")
	logCmd.Flags().StringSlice("topic", nil, "Log topic")
	decodeCmd.AddCommand(logCmd)

	returnCmd := &cobra.Command{
		Use:   "return TO CALLDATA RETURNDATA",
		Short: "Decode return data",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			calldata, err := decodeHexArg(args[1])
			if err != nil {
				return err
			}
			returndata, err := decodeHexArg(args[2])
			if err != nil {
				return err
			}
			return printRaw(c.DecodeReturn(&api.ReturnRequest{To: args[0], Calldata: calldata, Returndata: returndata}))
		},
	}
	decodeCmd.AddCommand(returnCmd)

	revertCmd := &cobra.Command{
		Use:   "revert DATA",
		Short: "Decode revert data",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHexArg(args[0])
			if err != nil {
				return err
			}
			to, _ := cmd.Flags().GetString("to")
			return printRaw(c.DecodeRevert(&api.RevertRequest{To: to, Data: data}))
		},
	}
	revertCmd.Flags().String("to", "", "Called address")
	decodeCmd.AddCommand(revertCmd)

	signaturesCmd := &cobra.Command{
		Use:   "signatures",
		Short: "Get list of registered signatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := database.Pageable{}
			p.Page, _ = cmd.Flags().GetUint("page")
			p.Size, _ = cmd.Flags().GetUint("size")
			kind, _ := cmd.Flags().GetString("kind")
			r, err := c.Signatures(p, abi.EntryType(kind))
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	signaturesCmd.Flags().Uint("page", 0, "Page number")
	signaturesCmd.Flags().Uint("size", 20, "Page size")
	signaturesCmd.Flags().String("kind", "", "Signature kind (function,event,error)")
	rootCmd.AddCommand(signaturesCmd)

	registerCmd := &cobra.Command{
		Use:   "register SIGNATURE",
		Short: "Register signature",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			r, _, err := c.RegisterSignature(&api.SignatureRequest{Signature: args[0], Kind: abi.EntryType(kind)})
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	registerCmd.Flags().String("kind", "", "Signature kind (function,event,error)")
	rootCmd.AddCommand(registerCmd)
	return rootCmd, rootVc
}
