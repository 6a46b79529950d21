// Copyright © 2024 OpenIM. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"os"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/spf13/cobra"

	"github.com/openimsdk/localcache/pkg/common/config"
)

// Version 进程版本号，构建时通过-ldflags覆盖
var Version = "dev"

const (
	FlagConf          = "config_folder_path"
	loggerPrefixName  = "localcache-log"
	defaultConfFolder = "config"
)

// RootCmd 是localcache命令行的根命令
// 子命令执行前加载并校验配置，serve和bench还会初始化日志
type RootCmd struct {
	Command     cobra.Command
	processName string
	confFolder  string
	conf        *config.Config
}

// NewRootCmd 创建根命令并注册serve、bench、config子命令
func NewRootCmd(processName string) *RootCmd {
	r := &RootCmd{processName: processName}
	r.Command = cobra.Command{
		Use:           processName,
		Short:         "Bounded in-process LRU cache with TTL and eviction notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.loadConfig()
		},
	}
	r.Command.PersistentFlags().StringVarP(&r.confFolder, FlagConf, "c", "", "path of config directory")

	r.Command.AddCommand(NewServeCmd(r), NewBenchCmd(r), NewConfigCmd(r))
	return r
}

// Config 返回已加载的配置，只能在子命令执行期间调用
func (r *RootCmd) Config() *config.Config {
	return r.conf
}

// Execute 执行命令
func (r *RootCmd) Execute() error {
	return r.Command.Execute()
}

func (r *RootCmd) loadConfig() error {
	folder := r.confFolder
	if folder == "" {
		folder = os.Getenv(config.MountConfigFilePath)
	}
	if folder == "" {
		folder = defaultConfFolder
	}
	conf, err := config.Load(folder)
	if err != nil {
		return err
	}
	r.conf = conf
	return nil
}

func (r *RootCmd) initLog() error {
	conf := r.conf.Log
	if err := log.InitLoggerFromConfig(
		loggerPrefixName,
		r.processName,
		"", "",
		conf.RemainLogLevel,
		conf.IsStdout,
		conf.IsJson,
		conf.StorageLocation,
		conf.RemainRotationCount,
		conf.RotationTime,
		Version,
		conf.IsSimplify,
	); err != nil {
		return errs.WrapMsg(err, "init logger failed")
	}
	if err := log.InitConsoleLogger(r.processName, conf.RemainLogLevel, conf.IsJson, Version); err != nil {
		return errs.WrapMsg(err, "init console logger failed")
	}
	return nil
}
