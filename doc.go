// Package cachesc builds and drives Prime+Probe cache eviction sets on
// x86-64 L1 and L2 caches.
//
// A typical measurement session:
//
//	ctx := cachesc.NewContext(cachesc.L1)
//	defer ctx.Release()
//
//	ds := cachesc.Build(ctx)
//	defer cachesc.Release(ds)
//
//	victim := cachesc.PrepareVictim(ctx, targetSet)
//	defer cachesc.ReleaseVictim(victim)
//
//	cachesc.Prime(ds)
//	cachesc.AccessVictim(victim)
//	cachesc.Probe(ctx, ds)
//	times := cachesc.SetTimes(ds)
//
// L1 is always virtually addressed; L2 is physically addressed, and
// Build transparently chooses between reading /proc/self/pagemap
// (when the process has that privilege) and a Prime+Probe-based
// collision oracle (when it does not).
package cachesc
