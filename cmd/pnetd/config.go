/*
Copyright (c) The pnet-rt Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"net"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// StaticConfig is the set of options fixed at process start, supplied on
// the command line.
type StaticConfig struct {
	Interface      string
	IP             string
	LogLevel       string
	MonitoringPort int
	ConfigFile     string
	Cooperative    bool
}

// DynamicConfig is the set of options read from the YAML file given by
// -config, describing the station's identity and the single IOCR this
// daemon provides. pnetd reads it once at startup and does not reload it.
type DynamicConfig struct {
	ChassisID string `yaml:"chassis_id"`
	PortID    string `yaml:"port_id"`
	TTLSec    uint16 `yaml:"ttl_seconds"`

	DeviceMAC       string `yaml:"device_mac"`
	InitiatorMAC    string `yaml:"initiator_mac"`
	FrameID         uint16 `yaml:"frame_id"`
	CSDULength      int    `yaml:"c_sdu_length"`
	SendClockFactor int    `yaml:"send_clock_factor"`
	ReductionRatio  int    `yaml:"reduction_ratio"`
	VID             uint16 `yaml:"vid"`
	Priority        uint8  `yaml:"priority"`

	RTClass2PortStatus uint16 `yaml:"rtclass2_port_status"`
	RTClass3PortStatus uint16 `yaml:"rtclass3_port_status"`
	MACPhyCapAneg      uint8  `yaml:"mac_phy_cap_aneg"`
	MACPhyCapPHY       uint16 `yaml:"mac_phy_cap_phy"`
	MACPhyMAUType      uint16 `yaml:"mac_phy_mau_type"`

	DAPSlot      uint16 `yaml:"dap_slot"`
	Port0Subslot uint16 `yaml:"port0_subslot"`
}

// Config bundles both halves plus the derived net.HardwareAddr fields
// parsed out of DynamicConfig's string representation.
type Config struct {
	StaticConfig
	DynamicConfig

	deviceMAC    net.HardwareAddr
	initiatorMAC net.HardwareAddr
}

func readDynamicConfig(path string) (*DynamicConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dynamic config: %w", err)
	}
	var dc DynamicConfig
	if err := yaml.Unmarshal(b, &dc); err != nil {
		return nil, fmt.Errorf("parsing dynamic config: %w", err)
	}
	return &dc, nil
}

// resolveMACs parses the MAC address strings into net.HardwareAddr,
// failing fast if either is malformed.
func (c *Config) resolveMACs() error {
	mac, err := net.ParseMAC(c.DeviceMAC)
	if err != nil {
		return fmt.Errorf("parsing device_mac %q: %w", c.DeviceMAC, err)
	}
	c.deviceMAC = mac

	initiator, err := net.ParseMAC(c.InitiatorMAC)
	if err != nil {
		return fmt.Errorf("parsing initiator_mac %q: %w", c.InitiatorMAC, err)
	}
	c.initiatorMAC = initiator
	return nil
}
