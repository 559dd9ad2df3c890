package rpc

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mdp/qrterminal/v3"
)

// FundURI builds an EIP-681 payment request that calls
// fundCampaign(id) with value wei, for signing on a phone wallet.
//
//	ethereum:<contract>@<chainId>/fundCampaign?uint256=<id>&value=<wei>
func FundURI(contract common.Address, chainID *big.Int, campaignID uint64, wei *big.Int) string {
	chain := ""
	if chainID != nil && chainID.Sign() > 0 {
		chain = "@" + chainID.String()
	}
	value := "0"
	if wei != nil {
		value = wei.String()
	}
	return fmt.Sprintf("ethereum:%s%s/fundCampaign?uint256=%d&value=%s", contract.Hex(), chain, campaignID, value)
}

// GenerateQRCode renders data as a half-block terminal QR code
func GenerateQRCode(data string) string {
	if data == "" {
		return ""
	}
	var buf bytes.Buffer
	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         &buf,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		QuietZone:      1,
	})
	return buf.String()
}
