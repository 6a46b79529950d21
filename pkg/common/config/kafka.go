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

package config

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/errs"
)

var producerAcks = map[string]sarama.RequiredAcks{
	"":               sarama.WaitForAll,
	"no_response":    sarama.NoResponse,
	"wait_for_local": sarama.WaitForLocal,
	"wait_for_all":   sarama.WaitForAll,
}

var compressTypes = map[string]sarama.CompressionCodec{
	"":       sarama.CompressionNone,
	"none":   sarama.CompressionNone,
	"gzip":   sarama.CompressionGZIP,
	"snappy": sarama.CompressionSnappy,
	"lz4":    sarama.CompressionLZ4,
	"zstd":   sarama.CompressionZSTD,
}

// BuildProducerConfig 构建同步producer使用的sarama配置
func (k *Kafka) BuildProducerConfig() (*sarama.Config, error) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	conf.Producer.Partitioner = sarama.NewHashPartitioner

	ack, ok := producerAcks[k.ProducerAck]
	if !ok {
		return nil, errs.ErrArgs.WrapMsg("unknown kafka producerAck", "producerAck", k.ProducerAck)
	}
	conf.Producer.RequiredAcks = ack

	codec, ok := compressTypes[k.CompressType]
	if !ok {
		return nil, errs.ErrArgs.WrapMsg("unknown kafka compressType", "compressType", k.CompressType)
	}
	conf.Producer.Compression = codec

	if k.Username != "" || k.Password != "" {
		conf.Net.SASL.Enable = true
		conf.Net.SASL.User = k.Username
		conf.Net.SASL.Password = k.Password
	}
	if k.Tls.EnableTLS {
		tlsConf, err := k.Tls.build()
		if err != nil {
			return nil, err
		}
		conf.Net.TLS.Enable = true
		conf.Net.TLS.Config = tlsConf
	}
	return conf, nil
}

func (t *TLSConfig) build() (*tls.Config, error) {
	conf := &tls.Config{InsecureSkipVerify: t.InsecureSkipVerify}
	if t.CACrt != "" {
		ca, err := os.ReadFile(t.CACrt)
		if err != nil {
			return nil, errs.WrapMsg(err, "read ca file failed", "caCrt", t.CACrt)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, errs.New("invalid ca file", "caCrt", t.CACrt).Wrap()
		}
		conf.RootCAs = pool
	}
	if t.ClientCrt != "" && t.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(t.ClientCrt, t.ClientKey)
		if err != nil {
			return nil, errs.WrapMsg(err, "load client cert failed", "clientCrt", t.ClientCrt)
		}
		conf.Certificates = []tls.Certificate{cert}
	}
	return conf, nil
}
