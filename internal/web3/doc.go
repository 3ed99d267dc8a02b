// Package web3 houses blockchain connectivity utilities used to stamp
// archived pipeline runs with an external time reference: chain id and
// latest block number fetched from a configured EVM endpoint. Chain
// endpoints are described in a YAML definition file so deployments can
// point the attestation context at Ethereum, BSC, Polygon or a local
// devnet without code changes.
package web3
