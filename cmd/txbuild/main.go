// Command txbuild is a developer-mode CLI for exercising the
// transaction-construction path directly against a CLMM pool: quote a
// swap off-chain, build the instruction, and optionally sign and send it
// — plain, or through a Jito bundle when -jito is passed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/raydium-indexer/clmm-indexer/internal/config"
	"github.com/raydium-indexer/clmm-indexer/pkg/raydium/clmm"
	"github.com/raydium-indexer/clmm-indexer/pkg/sol"
)

func main() {
	var (
		poolAddr    = flag.String("pool", "", "CLMM pool address (required)")
		amountIn    = flag.Int64("amount-in", 0, "input amount, in the input mint's base units (required)")
		zeroForOne  = flag.Bool("zero-for-one", true, "swap direction: true trades token0 for token1")
		slippageBps = flag.Int64("slippage-bps", 100, "slippage tolerance in basis points")
		useJito     = flag.Bool("jito", false, "send through a Jito bundle instead of a plain sendTransaction")
		jitoTip     = flag.Uint64("jito-tip-lamports", 10000, "Jito tip amount when -jito is set")
		dryRun      = flag.Bool("dry-run", true, "quote and build the instruction only; never sign or send")
	)
	flag.Parse()

	if *poolAddr == "" || *amountIn <= 0 {
		flag.Usage()
		log.Fatal("-pool and -amount-in are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	client, err := sol.NewClient(ctx, cfg.RPCURL, cfg.JitoEndpoint, cfg.RPCRequestsPerSecond)
	if err != nil {
		log.Fatalf("build solana client: %v", err)
	}

	poolID, err := solana.PublicKeyFromBase58(*poolAddr)
	if err != nil {
		log.Fatalf("invalid -pool address: %v", err)
	}

	quote, bundle, err := quoteSwap(ctx, client, poolID, *amountIn, *zeroForOne)
	if err != nil {
		log.Fatalf("quote swap: %v", err)
	}
	log.Printf("quote: amount_in=%d amount_out=%s final_tick=%d crossed_arrays=%v",
		*amountIn, quote.AmountCalculated.Abs().String(), quote.FinalTick, quote.TraversedArrays)

	if *dryRun {
		log.Printf("dry run: instruction not sent; pass -dry-run=false to sign and send")
		return
	}

	if !cfg.DeveloperModeEnabled() {
		log.Fatal("PRIVATE_KEY is not set; developer-mode sends require a process-local signing key")
	}
	signer := solana.MustPrivateKeyFromBase58(cfg.PrivateKey)

	inputMint := bundle.Pool.TokenMint0
	outputMint := bundle.Pool.TokenMint1
	if !*zeroForOne {
		inputMint, outputMint = outputMint, inputMint
	}

	inputAccount, err := client.SelectOrCreateSPLTokenAccount(ctx, signer, inputMint)
	if err != nil {
		log.Fatalf("resolve input token account: %v", err)
	}
	outputAccount, err := client.SelectOrCreateSPLTokenAccount(ctx, signer, outputMint)
	if err != nil {
		log.Fatalf("resolve output token account: %v", err)
	}

	minOut := applySlippage(quote.AmountCalculated.Abs(), *slippageBps)
	remainingArrays := make([]solana.PublicKey, 0, len(quote.TraversedArrays))
	for _, start := range quote.TraversedArrays {
		pda, _, err := clmm.TickArrayPDA(clmm.RaydiumProgramID, poolID, start)
		if err != nil {
			log.Fatalf("derive tick array pda: %v", err)
		}
		remainingArrays = append(remainingArrays, pda)
	}

	instr, err := clmm.BuildSwapV2(clmm.SwapV2Params{
		Payer:              signer.PublicKey(),
		Pool:               bundle.Pool,
		InputMint:          inputMint,
		InputTokenAccount:  inputAccount,
		OutputTokenAccount: outputAccount,
		AmountIn:           cosmath.NewInt(*amountIn),
		MinimumAmountOut:   minOut,
		RemainingArrays:    remainingArrays,
	})
	if err != nil {
		log.Fatalf("build swap instruction: %v", err)
	}

	if *useJito {
		tx, err := client.SignTransaction(ctx, []solana.PrivateKey{signer}, instr)
		if err != nil {
			log.Fatalf("sign transaction: %v", err)
		}
		bundleID, err := client.SendTxWithJito(ctx, *jitoTip, []solana.PrivateKey{signer}, tx)
		if err != nil {
			log.Fatalf("send jito bundle: %v", err)
		}
		fmt.Printf("jito bundle id: %s\n", bundleID)
		return
	}

	tx, err := client.SignTransaction(ctx, []solana.PrivateKey{signer}, instr)
	if err != nil {
		log.Fatalf("sign transaction: %v", err)
	}
	sig, err := client.SendTx(ctx, tx)
	if err != nil {
		log.Fatalf("send transaction: %v", err)
	}
	fmt.Printf("signature: %s\n", sig)
}

// quoteSwap loads the pool's current on-chain state and replays the
// swap state machine off-chain to produce a quote, following the same
// load-then-compute path the indexer's own pool-sync stage uses.
func quoteSwap(ctx context.Context, client *sol.Client, poolID solana.PublicKey, amountIn int64, zeroForOne bool) (clmm.SwapResult, *sol.CLMMBundle, error) {
	bundle, err := client.LoadCLMMPool(ctx, poolID, nil)
	if err != nil {
		return clmm.SwapResult{}, nil, err
	}

	result, err := clmm.ComputeSwap(clmm.SwapInput{
		AmountSpecified: cosmath.NewInt(amountIn),
		ZeroForOne:      zeroForOne,
		FeeRate:         int64(bundle.AmmConfig.TradeFeeRate),
		TickCurrent:     int64(bundle.Pool.TickCurrent),
		TickSpacing:     int64(bundle.Pool.TickSpacing),
		SqrtPriceX64:    bundle.Pool.CurrentSqrtPrice(),
		Liquidity:       bundle.Pool.CurrentLiquidity(),
		TickArrayBitmap: bundle.Pool.TickArrayBitmap,
		BitmapExtension: bundle.BitmapExtension,
		TickArrays:      bundle.TickArrays,
	})
	return result, bundle, err
}

// applySlippage reduces a quoted output amount by slippageBps basis
// points, giving the minimum-amount-out a swap instruction should accept.
func applySlippage(amountOut cosmath.Int, slippageBps int64) cosmath.Int {
	bpsDenominator := cosmath.NewInt(10000)
	factor := bpsDenominator.SubRaw(slippageBps)
	return amountOut.Mul(factor).Quo(bpsDenominator)
}
