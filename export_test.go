package rowpipe

import "github.com/panjf2000/ants/v2"

// Pools returns the underlying pools
func (p *Pools) Pools() []*ants.Pool {
	if p == nil {
		return nil
	}
	return p.pools
}

// RunTier submits every task to the pool of tier and waits until they all returned.
func (p *Pools) RunTier(tier int, tasks ...func()) error {
	g := p.group(tier)
	for _, task := range tasks {
		if err := g.Go(task); err != nil {
			g.Wait()
			return err
		}
	}
	g.Wait()
	return nil
}
