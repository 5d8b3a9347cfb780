package views

const titleArt = `
██████╗  █████╗ ██████╗ ████████╗██████╗ 
██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗
██████╔╝███████║██████╔╝   ██║   ██████╔╝
██╔══██╗██╔══██║██╔══██╗   ██║   ██╔══██╗
██████╔╝██║  ██║██║  ██║   ██║   ██║  ██║
╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝
`

const marketplaceArt = `
███╗   ███╗ █████╗ ██████╗ ██╗  ██╗███████╗████████╗
████╗ ████║██╔══██╗██╔══██╗██║ ██╔╝██╔════╝╚══██╔══╝
██╔████╔██║███████║██████╔╝█████╔╝ █████╗     ██║   
██║╚██╔╝██║██╔══██║██╔══██╗██╔═██╗ ██╔══╝     ██║   
██║ ╚═╝ ██║██║  ██║██║  ██║██║  ██╗███████╗   ██║   
╚═╝     ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝   ╚═╝   
`

const profileArt = `
██████╗ ██████╗  ██████╗ ███████╗██╗██╗     ███████╗
██╔══██╗██╔══██╗██╔═══██╗██╔════╝██║██║     ██╔════╝
██████╔╝██████╔╝██║   ██║█████╗  ██║██║     █████╗  
██╔═══╝ ██╔══██╗██║   ██║██╔══╝  ██║██║     ██╔══╝  
██║     ██║  ██║╚██████╔╝██║     ██║███████╗███████╗
╚═╝     ╚═╝  ╚═╝ ╚═════╝ ╚═╝     ╚═╝╚══════╝╚══════╝
`

const messagesArt = `
██╗███╗   ██╗██████╗  ██████╗ ██╗  ██╗
██║████╗  ██║██╔══██╗██╔═══██╗╚██╗██╔╝
██║██╔██╗ ██║██████╔╝██║   ██║ ╚███╔╝ 
██║██║╚██╗██║██╔══██╗██║   ██║ ██╔██╗ 
██║██║ ╚████║██████╔╝╚██████╔╝██╔╝ ██╗
╚═╝╚═╝  ╚═══╝╚═════╝  ╚═════╝ ╚═╝  ╚═╝
`
