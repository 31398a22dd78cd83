package solana

import (
	"bytes"
	"crypto/ed25519"
	"sort"
)

type MessageVersion uint8

const (
	MessageVersionLegacy MessageVersion = iota
	MessageVersion0
)

func (v MessageVersion) String() string {
	switch v {
	case MessageVersionLegacy:
		return "legacy"
	case MessageVersion0:
		return "v0"
	default:
		return "unknown"
	}
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

// AddressLookupTable is an on-chain table whose entries a v0 message may
// reference by index.
type AddressLookupTable struct {
	PublicKey ed25519.PublicKey
	Addresses []ed25519.PublicKey
}

// MessageAddressTableLookup lists the entries a message loads from a single
// lookup table.
type MessageAddressTableLookup struct {
	PublicKey       ed25519.PublicKey
	WritableIndexes []byte
	ReadonlyIndexes []byte
}

type Message struct {
	Version             MessageVersion
	Header              Header
	Accounts            []ed25519.PublicKey
	RecentBlockhash     Blockhash
	Instructions        []CompiledInstruction
	AddressTableLookups []MessageAddressTableLookup
}

// compileMessage lays out the accounts referenced by instructions and
// compiles each instruction against that layout. Accounts that can be
// resolved through one of the lookup tables are loaded dynamically, in which
// case the message is versioned.
func compileMessage(payer ed25519.PublicKey, tables []AddressLookupTable, instructions []Instruction) Message {
	accounts := []AccountMeta{{PublicKey: payer, IsSigner: true, IsWritable: true, isPayer: true}}
	for _, instruction := range instructions {
		accounts = append(accounts, AccountMeta{PublicKey: instruction.Program, isProgram: true})
		accounts = append(accounts, instruction.Accounts...)
	}
	accounts = dedupeAccounts(accounts)
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].precedes(accounts[j])
	})

	tables = append([]AddressLookupTable(nil), tables...)
	sort.Slice(tables, func(i, j int) bool {
		return bytes.Compare(tables[i].PublicKey, tables[j].PublicKey) < 0
	})
	lookups := make([]MessageAddressTableLookup, len(tables))
	for i := range tables {
		lookups[i].PublicKey = tables[i].PublicKey
	}

	var m Message
	for _, account := range accounts {
		if table, index, ok := findInTables(tables, account); ok {
			if account.IsWritable {
				lookups[table].WritableIndexes = append(lookups[table].WritableIndexes, index)
			} else {
				lookups[table].ReadonlyIndexes = append(lookups[table].ReadonlyIndexes, index)
			}
			continue
		}

		m.Accounts = append(m.Accounts, account.PublicKey)
		switch {
		case account.IsSigner:
			m.Header.NumSignatures++
			if !account.IsWritable {
				m.Header.NumReadonlySigned++
			}
		case !account.IsWritable:
			m.Header.NumReadOnly++
		}
	}

	// Instruction account indexes address the static keys, then every
	// writable table entry, then every readonly table entry.
	keys := append([]ed25519.PublicKey(nil), m.Accounts...)
	for i := range lookups {
		for _, index := range lookups[i].WritableIndexes {
			keys = append(keys, tables[i].Addresses[index])
		}
	}
	for i := range lookups {
		for _, index := range lookups[i].ReadonlyIndexes {
			keys = append(keys, tables[i].Addresses[index])
		}
	}
	for _, instruction := range instructions {
		m.Instructions = append(m.Instructions, instruction.compile(keys))
	}

	for _, lookup := range lookups {
		if len(lookup.WritableIndexes) > 0 || len(lookup.ReadonlyIndexes) > 0 {
			m.AddressTableLookups = append(m.AddressTableLookups, lookup)
		}
	}
	if len(m.AddressTableLookups) > 0 {
		m.Version = MessageVersion0
	}

	for i := range m.Accounts {
		if len(m.Accounts[i]) == 0 {
			m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		}
	}

	return m
}

// findInTables returns the first table entry matching the account, provided
// the account is eligible for dynamic loading.
func findInTables(tables []AddressLookupTable, account AccountMeta) (table int, index byte, ok bool) {
	if !account.canLookup() {
		return 0, 0, false
	}

	for i := range tables {
		if j := indexOfKey(tables[i].Addresses, account.PublicKey); j >= 0 {
			return i, byte(j), true
		}
	}
	return 0, 0, false
}
