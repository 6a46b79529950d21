// Copyright © 2023 OpenIM. All rights reserved.
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

package config

import (
	"os"
	"path/filepath"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/field"
)

// GetDefaultConfigPath 返回可执行文件所在目录旁边的config目录
// 例如 /app/bin/localcache 对应 /app/config
func GetDefaultConfigPath() (string, error) {
	executablePath, err := os.Executable()
	if err != nil {
		return "", errs.WrapMsg(err, "failed to get executable path")
	}
	configPath, err := field.OutDir(filepath.Join(filepath.Dir(executablePath), "../config/"))
	if err != nil {
		return "", errs.WrapMsg(err, "failed to get output directory", "outDir", filepath.Join(filepath.Dir(executablePath), "../config/"))
	}
	return configPath, nil
}

// resolvePath 返回configFolderPath下configName的路径
// 文件不存在时回退到GetDefaultConfigPath
func resolvePath(configFolderPath, configName string) (string, error) {
	path := filepath.Join(configFolderPath, configName)
	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	}
	if !os.IsNotExist(err) {
		return "", errs.WrapMsg(err, "stat config path error", "path", path)
	}
	dir, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	fallback := filepath.Join(dir, configName)
	if _, err := os.Stat(fallback); err != nil {
		return "", errs.WrapMsg(err, "config file not found", "path", path, "fallback", fallback)
	}
	return fallback, nil
}
