// Package benchmark provides performance benchmarks for the noisecore engine.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./test/benchmark/
//
// For profiling:
//
//	go test -bench=. -cpuprofile=cpu.prof -memprofile=mem.prof ./test/benchmark/
package benchmark

import (
	"net"
	"sync"
	"testing"

	"github.com/pzverkov/noisecore/internal/constants"
	"github.com/pzverkov/noisecore/pkg/chkem"
	"github.com/pzverkov/noisecore/pkg/noise"
	"github.com/pzverkov/noisecore/pkg/tunnel"
)

// --- Randomness Benchmarks ---

func BenchmarkSecureRandom32(b *testing.B) {
	buf := make([]byte, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = chkem.SecureRandom(buf)
	}
}

func BenchmarkSecureRandom64(b *testing.B) {
	buf := make([]byte, 64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = chkem.SecureRandom(buf)
	}
}

// --- CH-KEM Benchmarks ---

func BenchmarkCHKEMKeyGeneration(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := chkem.GenerateKeyPair()
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCHKEMEncapsulation(b *testing.B) {
	kp, _ := chkem.GenerateKeyPair()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := chkem.Encapsulate(kp.PublicKey())
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCHKEMDecapsulation(b *testing.B) {
	kp, _ := chkem.GenerateKeyPair()
	ct, _, _ := chkem.Encapsulate(kp.PublicKey())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := chkem.Decapsulate(ct, kp)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCHKEMFullKeyExchange(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		recipientKP, _ := chkem.GenerateKeyPair()
		ct, _, _ := chkem.Encapsulate(recipientKP.PublicKey())
		_, _ = chkem.Decapsulate(ct, recipientKP)
	}
}

// --- Noise SymmetricState Benchmarks ---

func BenchmarkMixSharedSecret(b *testing.B) {
	secret := make([]byte, constants.CHKEMSharedSecretSize)
	_ = chkem.SecureRandom(secret)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		unkeyed := noise.NewUnkeyedState(noise.NewSuite(noise.SHA256, noise.NewAES256GCM, constants.AESKeySize, noise.BigEndian), constants.ProtocolName)
		_ = unkeyed.MixSharedSecret(secret)
	}
}

func BenchmarkMixHash(b *testing.B) {
	suite := noise.NewSuite(noise.SHA256, noise.NewAES256GCM, constants.AESKeySize, noise.BigEndian)
	chunk := make([]byte, 256)
	_ = chkem.SecureRandom(chunk)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		unkeyed := noise.NewUnkeyedState(suite, constants.ProtocolName)
		_ = unkeyed.MixHash(chunk)
	}
}

func BenchmarkSplit(b *testing.B) {
	suite := noise.NewSuite(noise.SHA256, noise.NewAES256GCM, constants.AESKeySize, noise.BigEndian)
	secret := make([]byte, constants.CHKEMSharedSecretSize)
	_ = chkem.SecureRandom(secret)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		keyed := noise.NewUnkeyedState(suite, constants.ProtocolName).MixSharedSecret(secret)
		_ = keyed.Split(1, false)
	}
}

// --- AEAD Benchmarks ---

func BenchmarkAES256GCMEncrypt(b *testing.B) {
	key := make([]byte, 32)
	_ = chkem.SecureRandom(key)
	cipher := noise.NewCipher(noise.NewAES256GCM(key), noise.BigEndian, 1)
	plaintext := make([]byte, 1400) // typical MTU payload

	b.ResetTimer()
	b.SetBytes(int64(len(plaintext)))
	for i := 0; i < b.N; i++ {
		buf := append([]byte(nil), plaintext...)
		_ = cipher.Encrypt(nil, buf)
	}
}

func BenchmarkAES256GCMDecrypt(b *testing.B) {
	key := make([]byte, 32)
	_ = chkem.SecureRandom(key)
	sender := noise.NewCipher(noise.NewAES256GCM(key), noise.BigEndian, 1)
	plaintext := make([]byte, 1400)
	buf := append([]byte(nil), plaintext...)
	tag := sender.Encrypt(nil, buf)

	receiver := noise.NewCipher(noise.NewAES256GCM(key), noise.BigEndian, 1)

	b.ResetTimer()
	b.SetBytes(int64(len(plaintext)))
	for i := 0; i < b.N; i++ {
		dup := append([]byte(nil), buf...)
		if err := receiver.Decrypt(nil, dup, tag); err != nil {
			b.Fatal(err)
		}
		receiver = noise.NewCipher(noise.NewAES256GCM(key), noise.BigEndian, 1)
	}
}

func BenchmarkChaCha20Poly1305Encrypt(b *testing.B) {
	key := make([]byte, 32)
	_ = chkem.SecureRandom(key)
	cipher := noise.NewCipher(noise.NewChaCha20Poly1305(key), noise.LittleEndian, 1)
	plaintext := make([]byte, 1400)

	b.ResetTimer()
	b.SetBytes(int64(len(plaintext)))
	for i := 0; i < b.N; i++ {
		buf := append([]byte(nil), plaintext...)
		_ = cipher.Encrypt(nil, buf)
	}
}

// --- Payload Size Benchmarks ---

func BenchmarkAES256GCMEncrypt64B(b *testing.B) {
	benchmarkAEADEncrypt(b, 64)
}

func BenchmarkAES256GCMEncrypt1KB(b *testing.B) {
	benchmarkAEADEncrypt(b, 1024)
}

func BenchmarkAES256GCMEncrypt8KB(b *testing.B) {
	benchmarkAEADEncrypt(b, 8192)
}

func BenchmarkAES256GCMEncrypt64KB(b *testing.B) {
	benchmarkAEADEncrypt(b, 65536)
}

func benchmarkAEADEncrypt(b *testing.B, size int) {
	key := make([]byte, 32)
	_ = chkem.SecureRandom(key)
	cipher := noise.NewCipher(noise.NewAES256GCM(key), noise.BigEndian, 1)
	plaintext := make([]byte, size)

	b.ResetTimer()
	b.SetBytes(int64(size))
	for i := 0; i < b.N; i++ {
		buf := append([]byte(nil), plaintext...)
		_ = cipher.Encrypt(nil, buf)
	}
}

// --- Session Benchmarks ---

func establishedSessionPairForBench(b *testing.B, suite constants.CipherSuite) (*tunnel.Session, *tunnel.Session) {
	b.Helper()

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	initiator, err := tunnel.NewSession(tunnel.RoleInitiator, suite)
	if err != nil {
		b.Fatal(err)
	}
	responder, err := tunnel.NewSession(tunnel.RoleResponder, suite)
	if err != nil {
		b.Fatal(err)
	}

	var wg sync.WaitGroup
	var initiatorErr, responderErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		initiatorErr = tunnel.InitiatorHandshake(initiator, clientConn)
	}()
	go func() {
		defer wg.Done()
		responderErr = tunnel.ResponderHandshake(responder, serverConn)
	}()
	wg.Wait()

	if initiatorErr != nil {
		b.Fatal(initiatorErr)
	}
	if responderErr != nil {
		b.Fatal(responderErr)
	}

	return initiator, responder
}

func BenchmarkSessionEncrypt(b *testing.B) {
	session, _ := establishedSessionPairForBench(b, constants.CipherSuiteAES256GCM)

	plaintext := make([]byte, 1400)

	b.ResetTimer()
	b.SetBytes(int64(len(plaintext)))
	for i := 0; i < b.N; i++ {
		_, _, err := session.Encrypt(plaintext)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSessionDecrypt(b *testing.B) {
	initiator, responder := establishedSessionPairForBench(b, constants.CipherSuiteAES256GCM)

	plaintext := make([]byte, 1400)
	ciphertexts := make([][]byte, 1000)
	seqs := make([]uint64, 1000)

	for i := 0; i < 1000; i++ {
		ciphertexts[i], seqs[i], _ = initiator.Encrypt(plaintext)
	}

	b.ResetTimer()
	b.SetBytes(int64(len(plaintext)))
	for i := 0; i < b.N; i++ {
		idx := i % 1000
		_, err := responder.Decrypt(ciphertexts[idx], seqs[idx])
		if err != nil {
			// replay detection triggers once packets beyond the window repeat
			continue
		}
	}
}

// --- Handshake Benchmarks ---

func BenchmarkHandshake(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		clientConn, serverConn := net.Pipe()

		initiator, _ := tunnel.NewSession(tunnel.RoleInitiator, constants.CipherSuiteAES256GCM)
		responder, _ := tunnel.NewSession(tunnel.RoleResponder, constants.CipherSuiteAES256GCM)

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			_ = tunnel.InitiatorHandshake(initiator, clientConn)
		}()

		go func() {
			defer wg.Done()
			_ = tunnel.ResponderHandshake(responder, serverConn)
		}()

		wg.Wait()
		_ = clientConn.Close()
		_ = serverConn.Close()
	}
}

// --- Parallel Benchmarks ---

func BenchmarkCHKEMEncapsulationParallel(b *testing.B) {
	kp, _ := chkem.GenerateKeyPair()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = chkem.Encapsulate(kp.PublicKey())
		}
	})
}

func BenchmarkAES256GCMEncryptParallel(b *testing.B) {
	key := make([]byte, 32)
	_ = chkem.SecureRandom(key)
	plaintext := make([]byte, 1400)

	b.SetBytes(int64(len(plaintext)))
	b.RunParallel(func(pb *testing.PB) {
		cipher := noise.NewCipher(noise.NewAES256GCM(key), noise.BigEndian, 1)
		for pb.Next() {
			buf := append([]byte(nil), plaintext...)
			_ = cipher.Encrypt(nil, buf)
		}
	})
}

// --- Memory Allocation Benchmarks ---

func BenchmarkCHKEMKeyGenerationAllocs(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = chkem.GenerateKeyPair()
	}
}

func BenchmarkCHKEMEncapsulationAllocs(b *testing.B) {
	kp, _ := chkem.GenerateKeyPair()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = chkem.Encapsulate(kp.PublicKey())
	}
}
