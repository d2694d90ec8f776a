package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// bridgeABI covers the two calls this service ever makes: the burn on the
// source token messenger and the mint on the destination transmitter.
const bridgeABI = `[
  {"type":"function","name":"depositForBurn","stateMutability":"nonpayable","inputs":[
    {"name":"amount","type":"uint256"},
    {"name":"destinationDomain","type":"uint32"},
    {"name":"mintRecipient","type":"bytes32"},
    {"name":"burnToken","type":"address"},
    {"name":"destinationCaller","type":"bytes32"},
    {"name":"maxFee","type":"uint256"},
    {"name":"minFinalityThreshold","type":"uint32"}],"outputs":[]},
  {"type":"function","name":"receiveMessage","stateMutability":"nonpayable","inputs":[
    {"name":"message","type":"bytes"},
    {"name":"attestation","type":"bytes"}],"outputs":[{"name":"success","type":"bool"}]}
]`

// EthClient submits bridge calls directly through an RPC node with a locally
// held key. Used by deployments that do not route through a custodial
// provider.
type EthClient struct {
	client    *ethclient.Client
	abi       abi.ABI
	chainID   *big.Int
	transacts *bind.TransactOpts
}

type EthClientConfig struct {
	RPCURL        string
	PrivateKeyHex string
}

func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.PrivateKeyHex == "" {
		return nil, fmt.Errorf("private key is required for direct execution")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(bridgeABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	pk, err := parsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate

	return &EthClient{
		client:    cli,
		abi:       parsedABI,
		chainID:   chainID,
		transacts: txOpts,
	}, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func (c *EthClient) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error) {
	if !common.IsHexAddress(req.ContractAddress) {
		return ExecuteResponse{}, fmt.Errorf("invalid contract address %q", req.ContractAddress)
	}

	methodName, _, ok := strings.Cut(req.FunctionSignature, "(")
	if !ok {
		return ExecuteResponse{}, fmt.Errorf("malformed function signature %q", req.FunctionSignature)
	}
	method, ok := c.abi.Methods[methodName]
	if !ok {
		return ExecuteResponse{}, fmt.Errorf("unknown bridge function %q", methodName)
	}
	if len(method.Inputs) != len(req.Parameters) {
		return ExecuteResponse{}, fmt.Errorf("%s wants %d parameters, got %d", methodName, len(method.Inputs), len(req.Parameters))
	}

	args := make([]any, len(req.Parameters))
	for i, input := range method.Inputs {
		arg, err := convertParam(input.Type.String(), req.Parameters[i])
		if err != nil {
			return ExecuteResponse{}, fmt.Errorf("%s parameter %d (%s): %w", methodName, i, input.Name, err)
		}
		args[i] = arg
	}

	address := common.HexToAddress(req.ContractAddress)
	bound := bind.NewBoundContract(address, c.abi, c.client, c.client, c.client)

	opts := *c.transacts
	opts.Context = ctx

	tx, err := bound.Transact(&opts, methodName, args...)
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("submit %s: %w", methodName, err)
	}

	return ExecuteResponse{TxHash: tx.Hash().Hex()}, nil
}

// convertParam maps provider wire-form values (decimal strings for integers,
// 0x-hex strings for byte payloads) onto go-ethereum ABI argument types.
func convertParam(abiType string, value any) (any, error) {
	switch abiType {
	case "uint256":
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected decimal string, got %T", value)
		}
		n, ok := new(big.Int).SetString(str, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", str)
		}
		return n, nil
	case "uint32":
		switch v := value.(type) {
		case uint32:
			return v, nil
		case int:
			return uint32(v), nil
		case string:
			n, ok := new(big.Int).SetString(v, 10)
			if !ok || !n.IsUint64() || n.Uint64() > 1<<32-1 {
				return nil, fmt.Errorf("invalid uint32 %q", v)
			}
			return uint32(n.Uint64()), nil
		default:
			return nil, fmt.Errorf("expected uint32, got %T", value)
		}
	case "address":
		str, ok := value.(string)
		if !ok || !common.IsHexAddress(str) {
			return nil, fmt.Errorf("invalid address %v", value)
		}
		return common.HexToAddress(str), nil
	case "bytes32":
		raw, err := decodeHex(value)
		if err != nil {
			return nil, err
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("expected 32 bytes, got %d", len(raw))
		}
		var out [32]byte
		copy(out[:], raw)
		return out, nil
	case "bytes":
		return decodeHex(value)
	default:
		return nil, fmt.Errorf("unsupported abi type %s", abiType)
	}
}

func decodeHex(value any) ([]byte, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected hex string, got %T", value)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return raw, nil
}

// Ping checks the RPC node is reachable.
func (c *EthClient) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := c.client.BlockNumber(ctx)
	return err
}
