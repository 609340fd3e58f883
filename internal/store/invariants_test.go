package store

import "testing"

func validBase() AddressRow {
	return AddressRow{
		Address:     "0xabc",
		Network:     "ethereum",
		Tags:        []string{"EOA"},
		FirstSeen:   100,
		LastUpdated: 200,
	}
}

func TestValidateRowPlainEOA(t *testing.T) {
	if err := ValidateRow(validBase()); err != nil {
		t.Fatalf("expected valid EOA row, got: %v", err)
	}
}

func TestValidateRowEOAWithCodeHashRejected(t *testing.T) {
	r := validBase()
	r.CodeHash = ptr("0xdead")
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of EOA with code_hash")
	}
}

func TestValidateRowEOAWithNameCheckedTrueRejected(t *testing.T) {
	r := validBase()
	r.NameChecked = ptr(true)
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of EOA with name_checked=true")
	}
}

func TestValidateRowContractRequiresCodeHash(t *testing.T) {
	r := AddressRow{Address: "0xc", Network: "ethereum", Tags: []string{"Contract"}, FirstSeen: 1, LastUpdated: 1}
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of Contract without code_hash")
	}
}

func TestValidateRowContractWithCodeHashValid(t *testing.T) {
	r := AddressRow{
		Address: "0xc", Network: "ethereum", Tags: []string{"Contract"},
		CodeHash: ptr("0xdead"), Deployed: ptr(int64(50)), FirstSeen: 1, LastUpdated: 100,
	}
	if err := ValidateRow(r); err != nil {
		t.Fatalf("expected valid contract row, got: %v", err)
	}
}

func TestValidateRowVerifiedRequiresContractName(t *testing.T) {
	r := AddressRow{
		Address: "0xc", Network: "ethereum", Tags: []string{"Contract", "Verified"},
		CodeHash: ptr("0xdead"), NameChecked: ptr(true), FirstSeen: 1, LastUpdated: 1,
	}
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of Verified without contract_name")
	}
}

func TestValidateRowSelfDestroyedRequiresContractAndNilDeployed(t *testing.T) {
	r := AddressRow{
		Address: "0xc", Network: "ethereum", Tags: []string{"SelfDestroyed", "Contract"},
		CodeHash: ptr("0xdead"), FirstSeen: 1, LastUpdated: 1,
	}
	if err := ValidateRow(r); err != nil {
		t.Fatalf("expected valid self-destroyed row, got: %v", err)
	}

	r.Deployed = ptr(int64(5))
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of SelfDestroyed with non-nil deployed")
	}
}

func TestValidateRowSmartWalletRequiresEOA(t *testing.T) {
	r := AddressRow{Address: "0xc", Network: "ethereum", Tags: []string{"SmartWallet"}, FirstSeen: 1, LastUpdated: 1}
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of SmartWallet without EOA")
	}
}

func TestValidateRowEOASmartWalletWithCodeHashValid(t *testing.T) {
	r := AddressRow{
		Address: "0xc", Network: "ethereum", Tags: []string{"EOA", "SmartWallet"},
		CodeHash: ptr("0xdead"), FirstSeen: 1, LastUpdated: 1,
	}
	if err := ValidateRow(r); err != nil {
		t.Fatalf("expected a valid EIP-7702 EOA+SmartWallet row with code_hash retained, got: %v", err)
	}
}

func TestValidateRowContractWithZeroHashRejected(t *testing.T) {
	r := AddressRow{
		Address: "0xc", Network: "ethereum", Tags: []string{"Contract"},
		CodeHash: ptr("0x0"), FirstSeen: 1, LastUpdated: 1,
	}
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of Contract with a zero-hash code_hash")
	}
}

func TestValidateRowDeployedAfterLastUpdatedRejected(t *testing.T) {
	r := AddressRow{
		Address: "0xc", Network: "ethereum", Tags: []string{"Contract"},
		CodeHash: ptr("0xdead"), Deployed: ptr(int64(500)), FirstSeen: 1, LastUpdated: 100,
	}
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of deployed > last_updated")
	}
}

func TestValidateRowFirstSeenAfterLastUpdatedRejected(t *testing.T) {
	r := validBase()
	r.FirstSeen = 300
	if err := ValidateRow(r); err == nil {
		t.Fatal("expected rejection of first_seen > last_updated")
	}
}
