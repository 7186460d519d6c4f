package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

//go:embed fixture.json
var demoFixture []byte

const dateLayout = "2006-01-02"

type fixture struct {
	Branches []branchFixture  `json:"branches"`
	Products []productFixture `json:"products"`
	Lots     []lotFixture     `json:"lots"`
}

type branchFixture struct {
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	Address    string       `json:"address"`
	City       string       `json:"city"`
	Phone      string       `json:"phone"`
	Email      string       `json:"email"`
	SpendLimit *types.Money `json:"spendLimit"`
	ManagerID  *id.ID       `json:"managerId"`
}

type productFixture struct {
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	UnitOfMeasure string      `json:"unitOfMeasure"`
	UnitCost      types.Money `json:"unitCost"`
	Price         types.Money `json:"price"`
}

type lotFixture struct {
	Branch         string         `json:"branch"`
	Product        string         `json:"product"`
	LotNumber      string         `json:"lotNumber"`
	Quantity       types.Quantity `json:"quantity"`
	ExpirationDate string         `json:"expirationDate"`
	UnitCost       *types.Money   `json:"unitCost"`
	Supplier       string         `json:"supplier"`
	InvoiceNumber  string         `json:"invoiceNumber"`
	Notes          string         `json:"notes"`
}

func (l lotFixture) expiration() (time.Time, error) {
	return time.Parse(dateLayout, l.ExpirationDate)
}

// loadFixture reads path, or the embedded demo data when path is empty.
func loadFixture(path string) (*fixture, error) {
	data := demoFixture
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture: %w", err)
		}
		data = b
	}
	return parseFixture(data)
}

func parseFixture(data []byte) (*fixture, error) {
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

// check verifies that lots reference declared codes and carry valid dates.
func (f *fixture) check() error {
	branches := make(map[string]bool, len(f.Branches))
	for _, b := range f.Branches {
		code := strings.TrimSpace(b.Code)
		if code == "" {
			return fmt.Errorf("branch without code")
		}
		if branches[code] {
			return fmt.Errorf("duplicate branch %q", code)
		}
		branches[code] = true
	}

	products := make(map[string]bool, len(f.Products))
	for _, p := range f.Products {
		code := strings.TrimSpace(p.Code)
		if code == "" {
			return fmt.Errorf("product without code")
		}
		if products[code] {
			return fmt.Errorf("duplicate product %q", code)
		}
		products[code] = true
	}

	for i, l := range f.Lots {
		if !branches[l.Branch] {
			return fmt.Errorf("lot %d: unknown branch %q", i, l.Branch)
		}
		if !products[l.Product] {
			return fmt.Errorf("lot %d: unknown product %q", i, l.Product)
		}
		if _, err := l.expiration(); err != nil {
			return fmt.Errorf("lot %d: expiration date: %w", i, err)
		}
	}
	return nil
}
