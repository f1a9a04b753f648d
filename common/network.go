package common

import "github.com/btcsuite/btcd/chaincfg"

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkSignet  Network = "signet"
)

var supportedNetworks = map[Network]struct{}{
	NetworkMainnet: {},
	NetworkTestnet: {},
	NetworkSignet:  {},
}

var chainParams = map[Network]*chaincfg.Params{
	NetworkMainnet: &chaincfg.MainNetParams,
	NetworkTestnet: &chaincfg.TestNet3Params,
	NetworkSignet:  &chaincfg.SigNetParams,
}

func (n Network) IsSupported() bool {
	_, ok := supportedNetworks[n]
	return ok
}

func (n Network) ChainParams() *chaincfg.Params {
	return chainParams[n]
}

func (n Network) String() string {
	return string(n)
}
