package hal

import (
	"bytes"
	"testing"
)

func TestSetupPacket_MarshalTo(t *testing.T) {
	setup := SetupPacket{RequestType: 0x80, Request: 0x06, Value: 0x0302, Index: 0x0409, Length: 255}

	var buf [SetupPacketSize]byte
	if n := setup.MarshalTo(buf[:]); n != SetupPacketSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, SetupPacketSize)
	}
	want := []byte{0x80, 0x06, 0x02, 0x03, 0x09, 0x04, 0xFF, 0x00}
	if !bytes.Equal(buf[:], want) {
		t.Errorf("MarshalTo() = % X, want % X", buf, want)
	}
	if n := setup.MarshalTo(buf[:4]); n != 0 {
		t.Errorf("MarshalTo(short) = %d, want 0", n)
	}

	var got SetupPacket
	if !ParseSetupPacket(buf[:], &got) {
		t.Fatal("ParseSetupPacket() = false")
	}
	if got != setup {
		t.Errorf("ParseSetupPacket() = %+v, want %+v", got, setup)
	}
	if got.DescriptorType() != 0x03 || got.DescriptorIndex() != 0x02 {
		t.Errorf("descriptor type/index = %d/%d, want 3/2", got.DescriptorType(), got.DescriptorIndex())
	}
	if ParseSetupPacket(buf[:7], &got) {
		t.Error("ParseSetupPacket(short) = true")
	}
}

func TestEndpointConfig(t *testing.T) {
	tests := []struct {
		cfg  EndpointConfig
		num  uint8
		in   bool
		kind uint8
	}{
		{EndpointConfig{Address: 0x02, Attributes: TransferTypeBulk}, 2, false, TransferTypeBulk},
		{EndpointConfig{Address: 0x81, Attributes: TransferTypeBulk}, 1, true, TransferTypeBulk},
		{EndpointConfig{Address: 0x8F, Attributes: 0x0D}, 15, true, TransferTypeIsochronous},
		{EndpointConfig{Address: 0x00, Attributes: TransferTypeControl}, 0, false, TransferTypeControl},
	}
	for _, tt := range tests {
		if got := tt.cfg.Number(); got != tt.num {
			t.Errorf("0x%02X Number() = %d, want %d", tt.cfg.Address, got, tt.num)
		}
		if got := tt.cfg.IsIn(); got != tt.in {
			t.Errorf("0x%02X IsIn() = %t, want %t", tt.cfg.Address, got, tt.in)
		}
		if got := tt.cfg.TransferType(); got != tt.kind {
			t.Errorf("0x%02X TransferType() = %d, want %d", tt.cfg.Address, got, tt.kind)
		}
	}
}
