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
	"time"

	"github.com/openimsdk/tools/db/redisutil"
)

const (
	// FileName 配置文件名
	FileName = "localcache.yml"

	// MountConfigFilePath 未通过命令行指定配置目录时读取的环境变量
	MountConfigFilePath = "CONFIG_PATH"
)

// Config localcache进程的完整配置
type Config struct {
	LocalCache LocalCache `mapstructure:"localCache" yaml:"localCache"`
	Log        Log        `mapstructure:"log" yaml:"log"`
	Prometheus Prometheus `mapstructure:"prometheus" yaml:"prometheus"`
	Redis      Redis      `mapstructure:"redis" yaml:"redis"`
	Kafka      Kafka      `mapstructure:"kafka" yaml:"kafka"`
	Workload   Workload   `mapstructure:"workload" yaml:"workload"`
}

// LocalCache 缓存实例配置
//
// - Capacity: 最大缓存项数量
// - RefreshFrequency: 过期清理周期，为0时不能写入带TTL的缓存项
// - LoaderTTL: GetOrLoad写入的缓存项的存活时间
type LocalCache struct {
	Capacity         int           `mapstructure:"capacity" yaml:"capacity" validate:"gt=0"`
	RefreshFrequency time.Duration `mapstructure:"refreshFrequency" yaml:"refreshFrequency" validate:"gte=0"`
	LoaderTTL        time.Duration `mapstructure:"loaderTTL" yaml:"loaderTTL" validate:"gte=0"`
}

// Log 日志配置
type Log struct {
	StorageLocation     string `mapstructure:"storageLocation" yaml:"storageLocation"`         // 日志存储位置
	RotationTime        uint   `mapstructure:"rotationTime" yaml:"rotationTime"`               // 日志轮转时间（小时）
	RemainRotationCount uint   `mapstructure:"remainRotationCount" yaml:"remainRotationCount"` // 保留轮转文件数量
	RemainLogLevel      int    `mapstructure:"remainLogLevel" yaml:"remainLogLevel"`           // 日志级别
	IsStdout            bool   `mapstructure:"isStdout" yaml:"isStdout"`                       // 是否输出到标准输出
	IsJson              bool   `mapstructure:"isJson" yaml:"isJson"`                           // 是否使用JSON格式
	IsSimplify          bool   `mapstructure:"isSimplify" yaml:"isSimplify"`                   // 是否使用简化格式
	WithStack           bool   `mapstructure:"withStack" yaml:"withStack"`                     // 是否包含堆栈信息
}

// Prometheus 监控与管理接口配置
// 开启后在ListenIP:Ports[0]上提供/metrics、/stats和/keys
type Prometheus struct {
	Enable    bool   `mapstructure:"enable" yaml:"enable"`
	ListenIP  string `mapstructure:"listenIP" yaml:"listenIP"`
	Ports     []int  `mapstructure:"ports" yaml:"ports" validate:"required_if=Enable true,dive,gt=0,lt=65536"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	// Report 是周期性打印统计信息的cron表达式，为空时不打印
	Report string `mapstructure:"report" yaml:"report"`
}

// Redis 淘汰事件的Redis发布配置
type Redis struct {
	Enable      bool     `mapstructure:"enable" yaml:"enable"`
	Address     []string `mapstructure:"address" yaml:"address" validate:"required_if=Enable true"`
	Username    string   `mapstructure:"username" yaml:"username"`
	Password    string   `mapstructure:"password" yaml:"password"`
	ClusterMode bool     `mapstructure:"clusterMode" yaml:"clusterMode"`
	DB          int      `mapstructure:"storage" yaml:"storage"`
	MaxRetry    int      `mapstructure:"maxRetry" yaml:"maxRetry"`
	PoolSize    int      `mapstructure:"poolSize" yaml:"poolSize"`
	Channel     string   `mapstructure:"channel" yaml:"channel" validate:"required_if=Enable true"`
	// Listen 为true时同时订阅Channel，收到的key从本地缓存删除
	Listen bool `mapstructure:"listen" yaml:"listen"`
}

// Kafka 淘汰事件的Kafka发布配置
type Kafka struct {
	Enable       bool      `mapstructure:"enable" yaml:"enable"`
	Username     string    `mapstructure:"username" yaml:"username"`
	Password     string    `mapstructure:"password" yaml:"password"`
	ProducerAck  string    `mapstructure:"producerAck" yaml:"producerAck" validate:"omitempty,oneof=no_response wait_for_local wait_for_all"`
	CompressType string    `mapstructure:"compressType" yaml:"compressType" validate:"omitempty,oneof=none gzip snappy lz4 zstd"`
	Address      []string  `mapstructure:"address" yaml:"address" validate:"required_if=Enable true"`
	Topic        string    `mapstructure:"topic" yaml:"topic" validate:"required_if=Enable true"`
	Tls          TLSConfig `mapstructure:"tls" yaml:"tls"`
}

// TLSConfig TLS配置
type TLSConfig struct {
	EnableTLS          bool   `mapstructure:"enableTLS" yaml:"enableTLS"`
	CACrt              string `mapstructure:"caCrt" yaml:"caCrt"`
	ClientCrt          string `mapstructure:"clientCrt" yaml:"clientCrt"`
	ClientKey          string `mapstructure:"clientKey" yaml:"clientKey"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify" yaml:"insecureSkipVerify"`
}

// Workload bench命令使用的压测参数
type Workload struct {
	Goroutines int           `mapstructure:"goroutines" yaml:"goroutines" validate:"gt=0"`
	Operations int           `mapstructure:"operations" yaml:"operations" validate:"gt=0"`
	KeySpace   int           `mapstructure:"keySpace" yaml:"keySpace" validate:"gt=0"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
	// DelRatio 删除操作所占比例，取值[0,1)
	DelRatio float64 `mapstructure:"delRatio" yaml:"delRatio" validate:"gte=0,lt=1"`
}

func (r *Redis) Build() *redisutil.Config {
	return &redisutil.Config{
		ClusterMode: r.ClusterMode,
		Address:     r.Address,
		Username:    r.Username,
		Password:    r.Password,
		DB:          r.DB,
		MaxRetry:    r.MaxRetry,
		PoolSize:    r.PoolSize,
	}
}
