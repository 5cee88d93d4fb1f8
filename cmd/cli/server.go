package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/config"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/evm-codec/api"
	"github.com/icon-project/evm-codec/database"
	"github.com/icon-project/evm-codec/project"
	"github.com/icon-project/evm-codec/registry"
)

type Config struct {
	config.FileConfig `json:",squash"`

	Server   ServerConfig     `json:"server"`
	Project  ProjectConfig    `json:"project"`
	RPC      *RPCConfig       `json:"rpc,omitempty"`
	Database *database.Config `json:"database,omitempty"`

	LogLevel     string            `json:"log_level"`
	ConsoleLevel string            `json:"console_level"`
	LogWriter    *log.WriterConfig `json:"log_writer,omitempty"`
}

type ServerConfig struct {
	Address      string `json:"address"`
	DumpLogLevel string `json:"dump_log_level,omitempty"`
}

type ProjectConfig struct {
	Artifacts       []string          `json:"artifacts,omitempty"`
	StandardOutputs []string          `json:"standard_outputs,omitempty"`
	Addresses       map[string]string `json:"addresses,omitempty"`
}

type RPCConfig struct {
	Endpoint          string           `json:"endpoint"`
	TransportLogLevel project.LogLevel `json:"transport_log_level,omitempty"`
}

func ReadConfig(filePath string, cfg *Config, vc *viper.Viper) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("fail to open config file=%s err=%+v", filePath, err)
	}
	vc.SetConfigType("json")
	err = vc.ReadConfig(f)
	if err != nil {
		return fmt.Errorf("fail to read config file=%s err=%+v", filePath, err)
	}
	if err = vc.Unmarshal(cfg, cli.ViperDecodeOptJson); err != nil {
		return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
	}
	cfg.FilePath, _ = filepath.Abs(filePath)
	return nil
}

func resolveAll(cfg *Config, l []string) []string {
	r := make([]string, len(l))
	for i, p := range l {
		r[i] = cfg.ResolveAbsolute(p)
	}
	return r
}

func NewDecoder(cfg *Config, l log.Logger) (*project.Decoder, error) {
	compilations, err := LoadCompilations(
		resolveAll(cfg, cfg.Project.Artifacts),
		resolveAll(cfg, cfg.Project.StandardOutputs))
	if err != nil {
		return nil, err
	}
	d, err := project.NewDecoder(compilations, l)
	if err != nil {
		return nil, err
	}
	for address, name := range cfg.Project.Addresses {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid address=%s for contract=%s", address, name)
		}
		if err = d.RegisterAddress(common.HexToAddress(address), name); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func NewServerCommand(parentCmd *cobra.Command, parentVc *viper.Viper, version, build string) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "server", "Server management")
	cfg := &Config{}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgFilePath := rootVc.GetString("config"); cfgFilePath != "" {
			if err := ReadConfig(cfgFilePath, cfg, rootVc); err != nil {
				return err
			}
		}
		if err := rootVc.Unmarshal(&cfg, cli.ViperDecodeOptJson); err != nil {
			return fmt.Errorf("fail to unmarshall config from env err=%+v", err)
		}
		return nil
	}
	rootPFlags := rootCmd.PersistentFlags()
	rootPFlags.StringP("config", "c", "", "Parsing configuration file")
	rootPFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	rootPFlags.String("log_writer.filename", "evm-codec.log", "Log file name (rotated files resides in same directory)")
	rootPFlags.Int("log_writer.maxsize", 100, "Maximum log file size in MiB")
	rootPFlags.Int("log_writer.maxage", 0, "Maximum age of log file in day")
	rootPFlags.Int("log_writer.maxbackups", 0, "Maximum number of backups")
	rootPFlags.Bool("log_writer.localtime", false, "Use localtime on rotated log file instead of UTC")
	rootPFlags.Bool("log_writer.compress", false, "Use gzip on rotated log file")
	//ServerConfig
	rootPFlags.String("server.address", "localhost:8080", "server address")
	rootPFlags.String("server.dump_log_level", "trace", "server dump log level (trace,debug,info)")
	//ProjectConfig
	rootPFlags.StringSlice("project.artifacts", nil, "Compiled artifact files")
	rootPFlags.StringSlice("project.standard_outputs", nil, "Compiler standard JSON output files")
	cli.BindPFlags(rootVc, rootPFlags)

	saveCmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save configuration",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			saveFilePath := args[0]
			cfg.FilePath, _ = filepath.Abs(saveFilePath)
			cfg.BaseDir = cfg.ResolveRelative(cfg.BaseDir)

			if cfg.LogWriter != nil {
				cfg.LogWriter.Filename = cfg.ResolveRelative(cfg.LogWriter.Filename)
			}

			if example, err := cmd.Flags().GetBool("example"); err != nil {
				return err
			} else if example {
				if len(cfg.Project.Artifacts) == 0 && len(cfg.Project.StandardOutputs) == 0 {
					cfg.Project.Artifacts = []string{"build/contracts/Token.json"}
				}
				if len(cfg.Project.Addresses) == 0 {
					cfg.Project.Addresses = map[string]string{
						"0x0000000000000000000000000000000000000000": "Token",
					}
				}
				if cfg.RPC == nil {
					cfg.RPC = &RPCConfig{
						Endpoint:          "http://localhost:8545",
						TransportLogLevel: project.LogLevel(log.TraceLevel),
					}
				}
				if cfg.Database == nil {
					cfg.Database = &database.Config{
						Driver: database.DriverSQLite,
						DBName: "signature.db",
					}
				}
			}

			if err := cli.JsonPrettySaveFile(saveFilePath, 0644, cfg); err != nil {
				return err
			}
			cmd.Println("Save configuration to", saveFilePath)
			return nil
		},
	}
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().Bool("example", false, "example")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start server",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateFlagsWithViper(rootVc, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Printf("evm-codec server version:%s build:%s", version, build)

			l := log.GlobalLogger()
			if cfg.LogWriter != nil {
				var lwCfg log.WriterConfig
				lwCfg = *cfg.LogWriter
				lwCfg.Filename = cfg.ResolveAbsolute(lwCfg.Filename)
				writer, err := log.NewWriter(&lwCfg)
				if err != nil {
					log.Panicf("Fail to make writer err=%+v", err)
				}
				err = l.SetFileWriter(writer)
				if err != nil {
					log.Panicf("Fail to set file logger err=%+v", err)
				}
			}

			if lv, err := log.ParseLevel(cfg.LogLevel); err != nil {
				log.Panicf("Invalid log_level=%s", cfg.LogLevel)
			} else {
				l.SetLevel(lv)
			}
			if lv, err := log.ParseLevel(cfg.ConsoleLevel); err != nil {
				log.Panicf("Invalid console_level=%s", cfg.ConsoleLevel)
			} else {
				l.SetConsoleLevel(lv)
			}
			modLevels, _ := cmd.Flags().GetStringToString("mod_level")
			for mod, lvStr := range modLevels {
				if lv, err := log.ParseLevel(lvStr); err != nil {
					log.Panicf("Invalid mod_level mod=%s level=%s", mod, lvStr)
				} else {
					l.SetModuleLevel(mod, lv)
				}
			}
			serverDumpLogLevel, err := log.ParseLevel(cfg.Server.DumpLogLevel)
			if err != nil {
				return err
			}

			d, err := NewDecoder(cfg, l)
			if err != nil {
				return err
			}
			l.Infof("loaded contracts:%d", len(d.Contracts()))
			s := api.NewServer(cfg.Server.Address, d, serverDumpLogLevel, l)
			if cfg.Database != nil {
				dbCfg := *cfg.Database
				if dbCfg.Driver == database.DriverSQLite {
					dbCfg.DBName = cfg.ResolveAbsolute(dbCfg.DBName)
				}
				db, err := database.OpenDatabase(dbCfg, l)
				if err != nil {
					return err
				}
				r, err := registry.NewRegistry(db, l)
				if err != nil {
					return err
				}
				s.SetRegistry(r)
			}
			if cfg.RPC != nil {
				c, err := project.NewRPCClient(context.Background(), cfg.RPC.Endpoint, cfg.RPC.TransportLogLevel.Level(), l)
				if err != nil {
					return err
				}
				s.SetStorageClient(c)
			}
			cli.OnInterrupt(func() {
				if err := s.Stop(); err != nil {
					l.Warnf("fail to stop server err:%+v", err)
				}
			})
			return s.Start()
		},
	}
	rootCmd.AddCommand(startCmd)
	startFlags := startCmd.Flags()
	startFlags.StringToString("mod_level", nil, "Set console log level for specific module ('mod'='level',...)")
	startFlags.MarkHidden("mod_level")
	return rootCmd, rootVc
}
